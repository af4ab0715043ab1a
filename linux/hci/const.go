package hci

import "time"

// HCI Packet types
const (
	pktTypeCommand uint8 = 0x01
	pktTypeACLData uint8 = 0x02
	pktTypeSCOData uint8 = 0x03
	pktTypeEvent   uint8 = 0x04
	pktTypeVendor  uint8 = 0xFF
)

const (
	chCmdBufChanSize    = 16
	chCmdBufElementSize = 64
	chCmdBufTimeout     = time.Second * 5
	cmdTimeout          = time.Second * 3
	sktRxChanSize       = 16
)
