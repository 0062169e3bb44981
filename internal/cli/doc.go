// Parses flags and runs dokken subcommands.
//
// Global flags:
//
//	-q, --quiet     Suppress informational output.
//	-v, --verbose   Include source locations in log output.
//	-d, --debug     Enable debug output.
//	-c, --config    Path to a YAML config file.
//
// Every subcommand builds one transport manager from the loaded config and
// closes it before returning.
package cli
