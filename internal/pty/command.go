package pty

import (
	"fmt"
	"os"
	"os/exec"
)

// fallbackShell is used when neither the caller nor $SHELL names one.
const fallbackShell = "/bin/sh"

// buildCommand assembles the shell process for a session. A non-empty distro
// runs the shell inside that container via distrobox; otherwise the shell
// runs directly on the host.
func buildCommand(sessionID, shell, distro, cwd string, extraEnv []string) *exec.Cmd {
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = fallbackShell
	}

	var cmd *exec.Cmd
	if distro != "" {
		cmd = exec.Command("distrobox", "enter", distro, "--", shell)
	} else {
		cmd = exec.Command(shell)
	}

	cmd.Env = append(os.Environ(),
		fmt.Sprintf("LOOM_SESSION_ID=%s", sessionID),
		"TERM=xterm-256color",
		"COLORTERM=truecolor",
	)
	cmd.Env = append(cmd.Env, extraEnv...)
	if cwd != "" {
		if info, err := os.Stat(cwd); err == nil && info.IsDir() {
			cmd.Dir = cwd
		}
	}
	return cmd
}
