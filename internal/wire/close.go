package wire

// Websocket close codes used by the gateway.
const (
	CloseNormal         = 1000
	CloseGoingAway      = 1001
	ClosePolicy         = 1008
	CloseSuperseded     = 4001 // replaced by a newer join of the same user
	CloseDeliveryFailed = 4002 // outbound buffer overflowed or write failed
)

// IsCleanClose reports whether a client should stay down after the server
// closed with code. 1001 is treated as unclean so clients ride out restarts.
func IsCleanClose(code int) bool {
	return code == CloseNormal || code == CloseSuperseded
}
