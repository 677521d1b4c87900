package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// confirm asks a yes/no question on in; anything but y/yes is a no.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s (y/N): ", question)
	response, _ := bufio.NewReader(in).ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
