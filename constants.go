package logicclient

import "time"

// DefaultPort is the TCP port the logic system listens on.
const DefaultPort = 14309

const (
	// DefaultCommandTimeout is how long a command may wait for its response.
	DefaultCommandTimeout = 5 * time.Second

	// DefaultConnectTimeout bounds the TCP connect plus version handshake.
	DefaultConnectTimeout = 5 * time.Second

	// DefaultRegistryShards is the number of lock shards in a Registry.
	DefaultRegistryShards = 16
)

// Command names understood by the logic system
const (
	CmdVersion       = "ver"      // Server version string
	CmdInfo          = "inf"      // Graph info as key-value pairs
	CmdList          = "lst"      // Objects and parameters, one per line
	CmdListExports   = "lstk"     // Exports as key-value lines
	CmdSubscriptions = "subs"     // Active subscriptions, one per line
	CmdStats         = "stats"    // Server statistics, one per line
	CmdHelp          = "help"     // Command help, one per line
	CmdDownload      = "download" // Binary graph download
	CmdGet           = "get"      // Read one parameter
	CmdSet           = "set"      // Write one parameter
	CmdBye           = "bye"      // End the session
)

// Response line types
const (
	ResponseOK  = "OK"
	ResponseErr = "ERR"
	ResponseSub = "SUB"
)

const (
	// responseSeparator splits the response type from its message.
	responseSeparator = " - "

	lineDelimiter = '\n'

	// maxDataChunk caps a single read while in binary framing mode.
	maxDataChunk = 32 * 1024
)
