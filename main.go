// SPDX-License-Identifier: MPL-2.0

// provisio resolves provisioning requests against feature-packs and installs the result.
package main

import cmd "github.com/provisio/provisio/cmd/provisio"

func main() {
	cmd.Execute()
}
