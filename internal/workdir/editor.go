package workdir

import (
	"os"
	"os/exec"
	"strings"
)

// EditorCommand returns a command that opens path in $EDITOR, defaulting to
// vi. EDITOR may carry arguments, as in "code --wait".
func EditorCommand(path string) *exec.Cmd {
	args := strings.Fields(os.Getenv("EDITOR"))
	if len(args) == 0 {
		args = []string{"vi"}
	}

	//nolint:gosec // the editor is chosen by the user running the program
	return exec.Command(args[0], append(args[1:], path)...)
}
