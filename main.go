// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/modhost/modhost/cmd/modhost"

func main() {
	cmd.Execute()
}
