package constants

// Wire Protocol Constants
//
// This file contains the protocol-level constants shared by the framing,
// crypto and service layers. The values are fixed by the client protocol
// and must not be changed.

// Frame layout constants.
const (
	// NetworkMessageMaxSize is the fixed capacity of a NetworkMessage buffer.
	NetworkMessageMaxSize = 24576

	// OutputHeaderReserve is the room reserved at the front of an
	// OutputMessage for lazily-prepended frame headers. The headers take
	// 7 of the 8 bytes, so a finished frame starts at offset 1:
	//
	//	PLAINTEXT:
	//	  1 .. 3 => XTEA block count
	//	  3 .. 7 => checksum or sequence number
	//	ENCRYPTED:
	//	  7 .. 8 => padding count
	//	  8 ..   => payload + padding
	OutputHeaderReserve = 8

	// XTEABlockSize is the XTEA cipher block size in bytes.
	XTEABlockSize = 8

	// SequenceDeflateBit marks a deflated server frame when set on the
	// sequence field of an outbound frame.
	SequenceDeflateBit = 0x80000000

	// SequenceReservedBit is the second-highest sequence bit. Its meaning is
	// unknown; it is sent as zero and masked out on receive.
	SequenceReservedBit = 0x40000000

	// SequenceValueMask extracts the plain sequence value.
	SequenceValueMask = 0x3FFFFFFF

	// DeflateMinPayload is the smallest outbound payload eligible for
	// compression.
	DeflateMinPayload = 128
)

// RSA constants.
const (
	// RSAKeyBits is the RSA key size in bits for the login key exchange.
	RSAKeyBits = 1024

	// RSABlockSize is the RSA-1024 block size in bytes.
	RSABlockSize = 128
)

// Handshake constants.
const (
	// XTEAKeySize is the session key size in bytes (4 little-endian words).
	XTEAKeySize = 16

	// LoginPacketSize is the exact decrypted size of the framed login
	// command the client sends after the challenge.
	LoginPacketSize = 252

	// ChallengeOpcode identifies the server challenge frame.
	ChallengeOpcode = 0x1F

	// LoginOpcode identifies the client login command.
	LoginOpcode = 0x0A

	// ClientVersionMin and ClientVersionMax bound the accepted terminal
	// versions. A single fixed range; no protocol negotiation.
	ClientVersionMin = 1310
	ClientVersionMax = 1320

	// ClientVersionStr is the client version shown in login errors.
	ClientVersionStr = "13.10"

	// TerminalOTClientLinux is the first terminal type that understands the
	// extended-opcode extension.
	TerminalOTClientLinux = 10
)

// Session token constants.
const (
	// SessionTokenSize is the raw size of a login session token in bytes.
	SessionTokenSize = 16
)

// Status protocol constants.
const (
	// StatusRequestSize is the fixed body length of a status request.
	StatusRequestSize = 6

	// StatusMaxResponse bounds the status string sent back to a peer.
	StatusMaxResponse = 1024
)

// OutputArenaSize is the capacity of the process-wide output free list.
const OutputArenaSize = 2048
