package types

type EventType string

func (s EventType) String() string {
	return string(s)
}

// Realtime events delivered on the bus.
const (
	EventOfferInserted     EventType = "OFFER_INSERTED"
	EventRideStatusChanged EventType = "RIDE_STATUS_CHANGED"
	EventBalanceChanged    EventType = "BALANCE_CHANGED"
)

type NoticeKind string

// Notices pushed to the UI.
const (
	NoticeSnapshot          NoticeKind = "snapshot"
	NoticeOfferReceived     NoticeKind = "offer_received"
	NoticeOfferCleared      NoticeKind = "offer_cleared"
	NoticeOfferUnavailable  NoticeKind = "offer_unavailable"
	NoticeStatusFailed      NoticeKind = "status_update_failed"
	NoticeLocationError     NoticeKind = "location_error"
	NoticeConnectionError   NoticeKind = "connection_error"
	NoticeLowBalance        NoticeKind = "low_balance"
	NoticeSuspended         NoticeKind = "account_suspended"
	NoticePassengerCanceled NoticeKind = "passenger_cancelled"
	NoticeEarned            NoticeKind = "earned"
	NoticeNoShowAvailable   NoticeKind = "no_show_available"
	NoticeRideCancelled     NoticeKind = "ride_cancelled"
)
