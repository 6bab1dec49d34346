//go:build !unix

package transcode

import "os/exec"

// setProcessGroup keeps the exec.CommandContext default of killing the direct child.
func setProcessGroup(*exec.Cmd) {}
