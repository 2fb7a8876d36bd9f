package version

// Current defines the application version.
// It defaults to "dev" but is overwritten by the Makefile using -ldflags.
var Current = "dev"

// Commit is the source revision, injected the same way.
var Commit = "none"

const AppName = "BubbleScope"

// String renders "BubbleScope dev (none)".
func String() string {
	return AppName + " " + Current + " (" + Commit + ")"
}
