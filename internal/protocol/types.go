package protocol

// Message types carried in the packet type word. The transport layer
// never interprets these; they exist for the agent/controller loops
// built on top of it.
const (
	MsgPing      uint32 = 1
	MsgPong      uint32 = 2
	MsgHeartbeat uint32 = 3
	MsgStatus    uint32 = 4
	MsgReport    uint32 = 5
)

// Field types used inside composite payloads.
const (
	FieldID       uint32 = 100
	FieldUptimeMS uint32 = 101
	FieldSeq      uint32 = 102
	FieldNote     uint32 = 103
)
