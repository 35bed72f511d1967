// internal/constants/constants.go

// package constants holds the fixed values of the msx cassette protocol and of
// the cas container format. none of these are inferred at runtime.
package constants

const (
	// .cas container constants
	SyncMarkerSize = 8    // every block starts with the 8 byte sync marker
	TagRepeat      = 10   // a file header repeats its type tag 10 times
	NameSize       = 6    // tape file names are 6 bytes, space padded
	HeaderSize     = 16   // TagRepeat + NameSize
	AddressSize    = 6    // binary data block starts with start/end/exec (3x16 bit LE)
	AsciiChunkSize = 256  // ascii data is split in 256 byte blocks
	AsciiEOF       = 0x1A // fill byte for the last ascii block
	NameFill       = 0x20 // padding for short names
	LegacyAlign    = 8    // block alignment used by older cas writers (zero padded)

	// file header type tags
	TagBinary = 0xD0
	TagBasic  = 0xD3
	TagAscii  = 0xEA

	// msx disk file magic bytes (first byte of a file saved to disk)
	MagicBinary = 0xFE // BSAVE: FE start end exec
	MagicBasic  = 0xFF // tokenised basic

	// sample rate. 43200 divides evenly by 1200 and 2400 so at the default
	// baud rates every cycle is a whole number of samples.
	SampleRate = 43200

	// baud rates supported by the msx bios
	Baud1200 = 1200
	Baud2400 = 2400

	// leader tone lengths in cycles of 2*baud Hz, given for 1200 baud. at 2400
	// baud the count is doubled so the leader lasts the same time.
	LongLeaderCycles  = 16000
	ShortLeaderCycles = 4000

	// silence before each block, in milliseconds
	LongSilenceMillis  = 2000
	ShortSilenceMillis = 1000

	// byte framing: 1 start bit (0), 8 data bits lsb first, 2 stop bits (1)
	StartBits = 1
	StopBits  = 2

	// 8-bit unsigned pcm levels
	LevelHigh    = 255
	LevelLow     = 1
	LevelSilence = 128

	// wav container
	WAVChannels      = 1
	WAVBitsPerSample = 8

	// .idx merging: an idx position may be off by this many bytes
	MaxOffset = 16
)

// SyncMarker is the 8 byte marker that starts every block in a .cas file.
var SyncMarker = [SyncMarkerSize]byte{0x1F, 0xA6, 0xDE, 0xBA, 0xCC, 0x13, 0x7D, 0x74}
