package peerboard

// MessageType is a Bitcoin P2P command name.
//
// Unrecognized commands decode to [MessageUnknown].
type MessageType string

const (
	MessageVersion      MessageType = "version"
	MessageVerack       MessageType = "verack"
	MessageAddr         MessageType = "addr"
	MessageInv          MessageType = "inv"
	MessageGetData      MessageType = "getdata"
	MessageNotFound     MessageType = "notfound"
	MessageGetBlocks    MessageType = "getblocks"
	MessageGetHeaders   MessageType = "getheaders"
	MessageTx           MessageType = "tx"
	MessageBlock        MessageType = "block"
	MessageHeaders      MessageType = "headers"
	MessageGetAddr      MessageType = "getaddr"
	MessageMemPool      MessageType = "mempool"
	MessagePing         MessageType = "ping"
	MessagePong         MessageType = "pong"
	MessageSendHeaders  MessageType = "sendheaders"
	MessageFeeFilter    MessageType = "feefilter"
	MessageSendCmpct    MessageType = "sendcmpct"
	MessageCmpctBlock   MessageType = "cmpctblock"
	MessageGetBlockTxn  MessageType = "getblocktxn"
	MessageBlockTxn     MessageType = "blocktxn"
	MessageGetCFilters  MessageType = "getcfilters"
	MessageCFilter      MessageType = "cfilter"
	MessageGetCFHeaders MessageType = "getcfheaders"
	MessageCFHeaders    MessageType = "cfheaders"
	MessageGetCFCheckpt MessageType = "getcfcheckpt"
	MessageCFCheckpt    MessageType = "cfcheckpt"
	MessageAddrV2       MessageType = "addrv2"
	MessageSendAddrV2   MessageType = "sendaddrv2"
	MessageWtxidRelay   MessageType = "wtxidrelay"
	MessageFilterLoad   MessageType = "filterload"
	MessageFilterAdd    MessageType = "filteradd"
	MessageFilterClear  MessageType = "filterclear"
	MessageMerkleBlock  MessageType = "merkleblock"
	MessageReject       MessageType = "reject"
	MessageAlert        MessageType = "alert"
	MessageUnknown      MessageType = "unknown"
)

var knownMessageTypes = map[MessageType]struct{}{
	MessageVersion: {}, MessageVerack: {}, MessageAddr: {}, MessageInv: {},
	MessageGetData: {}, MessageNotFound: {}, MessageGetBlocks: {}, MessageGetHeaders: {},
	MessageTx: {}, MessageBlock: {}, MessageHeaders: {}, MessageGetAddr: {},
	MessageMemPool: {}, MessagePing: {}, MessagePong: {}, MessageSendHeaders: {},
	MessageFeeFilter: {}, MessageSendCmpct: {}, MessageCmpctBlock: {}, MessageGetBlockTxn: {},
	MessageBlockTxn: {}, MessageGetCFilters: {}, MessageCFilter: {}, MessageGetCFHeaders: {},
	MessageCFHeaders: {}, MessageGetCFCheckpt: {}, MessageCFCheckpt: {}, MessageAddrV2: {},
	MessageSendAddrV2: {}, MessageWtxidRelay: {}, MessageFilterLoad: {}, MessageFilterAdd: {},
	MessageFilterClear: {}, MessageMerkleBlock: {}, MessageReject: {}, MessageAlert: {},
}

// ParseMessageType maps a command name to its [MessageType].
func ParseMessageType(command string) MessageType {
	t := MessageType(command)
	if _, ok := knownMessageTypes[t]; ok {
		return t
	}
	return MessageUnknown
}

// String returns the command name.
func (t MessageType) String() string {
	return string(t)
}

// UnmarshalText implements encoding.TextUnmarshaler so unknown commands
// decode to [MessageUnknown] instead of failing.
func (t *MessageType) UnmarshalText(b []byte) error {
	*t = ParseMessageType(string(b))
	return nil
}
