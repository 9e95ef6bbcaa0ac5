//go:build !fuse

package main

import "fmt"

func runBrowse(indexPath, mountPoint string) error {
	return fmt.Errorf("b2extract was built without fuse support; rebuild with -tags fuse")
}
