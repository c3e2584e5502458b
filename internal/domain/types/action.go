package types

const (
	ActionRabbitMQConnected       = "rabbitmq_connected"
	ActionRabbitConnectionClosed  = "rabbitmq_connection_closed"
	ActionRabbitConnectionClosing = "rabbitmq_connection_closing"
	ActionRabbitReconnected       = "rabbitmq_reconnection_success"

	ActionDatabaseTransactionFailed = "database_transaction_failed"
	ActionExternalServiceFailed     = "external_service_failed"

	ActionSessionStart    = "session_start"
	ActionReconcile       = "availability_reconcile"
	ActionGoOnline        = "go_online"
	ActionGoOffline       = "go_offline"
	ActionForceOffline    = "force_offline"
	ActionLocationFlush   = "location_flush"
	ActionTrackerRun      = "tracker_run"
	ActionOfferAnnounce   = "offer_announce"
	ActionOfferAccept     = "offer_accept"
	ActionOfferDecline    = "offer_decline"
	ActionOfferExpire     = "offer_expire"
	ActionRideArrive      = "ride_arrive"
	ActionRideStart       = "ride_start"
	ActionRideComplete    = "ride_complete"
	ActionRideCancel      = "ride_cancel"
	ActionRideNoShow      = "ride_no_show"
	ActionRemoteCancel    = "ride_remote_cancel"
	ActionBalanceGuard    = "balance_guard"
	ActionBalanceRefresh  = "balance_refresh"
	ActionSignOut         = "sign_out"
	ActionEventConsume    = "event_consume"
	ActionOfferSweep      = "offer_sweep"
	ActionNoticeBroadcast = "notice_broadcast"
)
