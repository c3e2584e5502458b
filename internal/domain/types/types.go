package types

type ServiceMode string

// DriverAgent runs one driver's session engine with its control API.
// OfferSweeper periodically releases offers whose countdown has passed.
const (
	DriverAgent  ServiceMode = "driver-agent"
	OfferSweeper ServiceMode = "offer-sweeper"
)

func (m ServiceMode) Valid() bool {
	return m == DriverAgent || m == OfferSweeper
}

type RideStatus string

func (s RideStatus) String() string {
	return string(s)
}

const (
	RidePending    RideStatus = "PENDING"
	RideAccepted   RideStatus = "ACCEPTED"
	RideArrived    RideStatus = "ARRIVED"
	RideInProgress RideStatus = "IN_PROGRESS"
	RideCompleted  RideStatus = "COMPLETED"
	RideCancelled  RideStatus = "CANCELLED"
)

// ActiveRideStatuses are the statuses in which a ride is bound to its driver.
var ActiveRideStatuses = []RideStatus{RideAccepted, RideArrived, RideInProgress}

// IsActive reports whether the ride is assigned and not finished.
func (s RideStatus) IsActive() bool {
	switch s {
	case RideAccepted, RideArrived, RideInProgress:
		return true
	}
	return false
}

func (s RideStatus) IsTerminal() bool {
	return s == RideCompleted || s == RideCancelled
}

func (s RideStatus) Valid() bool {
	return s == RidePending || s.IsActive() || s.IsTerminal()
}

// OfferState of the driver-side offer controller.
type OfferState string

const (
	OfferIdle      OfferState = "IDLE"
	OfferOffered   OfferState = "OFFERED"
	OfferAccepted  OfferState = "ACCEPTED"
	OfferDeclined  OfferState = "DECLINED"
	OfferExpired   OfferState = "EXPIRED"
	OfferWithdrawn OfferState = "WITHDRAWN"
)

// Offer rows in storage.
const (
	OfferRowPending  = "pending"
	OfferRowExpired  = "expired"
	OfferRowAccepted = "accepted"
	OfferRowRejected = "rejected"
)

type CancelReason string

func (r CancelReason) String() string {
	return string(r)
}

const (
	CancelTraffic  CancelReason = "TRAFFIC"
	CancelCarIssue CancelReason = "CAR_ISSUE"
	CancelTooFar   CancelReason = "TOO_FAR"
	CancelPersonal CancelReason = "PERSONAL"
	CancelNoShow   CancelReason = "NO_SHOW"
)

// DriverCancelReasons are the reasons a driver can pick manually.
var DriverCancelReasons = []CancelReason{CancelTraffic, CancelCarIssue, CancelTooFar, CancelPersonal}

// AllowedIn reports whether the driver may pick r while the ride is in status s.
// Traffic and distance stop being valid excuses once the trip has started.
// NO_SHOW is never picked manually.
func (r CancelReason) AllowedIn(s RideStatus) bool {
	switch r {
	case CancelCarIssue, CancelPersonal:
		return true
	case CancelTraffic, CancelTooFar:
		return s != RideInProgress
	}
	return false
}

// CancelReasonsFor lists the manual reasons offered in status s.
func CancelReasonsFor(s RideStatus) []CancelReason {
	out := make([]CancelReason, 0, len(DriverCancelReasons))
	for _, r := range DriverCancelReasons {
		if r.AllowedIn(s) {
			out = append(out, r)
		}
	}
	return out
}

// MutationState tracks an optimistic local change until the backend answers.
type MutationState string

const (
	MutationNone       MutationState = ""
	MutationPending    MutationState = "PENDING"
	MutationConfirmed  MutationState = "CONFIRMED"
	MutationRolledBack MutationState = "ROLLED_BACK"
)

// ReconcileAction is what the availability reconciler did to the tracker.
type ReconcileAction string

const (
	ReconcileNone          ReconcileAction = "none"
	ReconcileStartTracking ReconcileAction = "start_tracking"
	ReconcileStopTracking  ReconcileAction = "stop_tracking"
)

// IngestSink selects where location batches are delivered.
type IngestSink string

const (
	IngestHTTP  IngestSink = "http"
	IngestKafka IngestSink = "kafka"
)
