// Package dockerfile renders Dockerfiles from image definitions.
package dockerfile

import (
	"fmt"
	"strings"

	"github.com/huskrun/husk/pkg/imagedef"
)

// Generate renders the Dockerfile for a definition. The packages install in
// a single noninteractive layer and the extra lines go in verbatim, so the
// definition stays the only input a rebuild depends on.
func Generate(def *imagedef.Definition) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "FROM %s\n\n", def.Base)

	if len(def.Packages) > 0 {
		sb.WriteString("RUN export DEBIAN_FRONTEND=noninteractive && \\\n")
		sb.WriteString("    apt-get update && \\\n")
		fmt.Fprintf(&sb, "    apt-get install -y --no-install-recommends %s && \\\n",
			strings.Join(def.Packages, " "))
		sb.WriteString("    rm -rf /var/lib/apt/lists/*\n\n")
	}

	for _, line := range def.ExtraLines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	if len(def.ExtraLines) > 0 {
		sb.WriteByte('\n')
	}

	fmt.Fprintf(&sb, "WORKDIR %s\n", def.UserHome)
	return sb.String()
}
