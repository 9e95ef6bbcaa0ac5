//go:build fuse

package main

import (
	"context"
	"fmt"
	"strings"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/KarpelesLab/b2extract"
)

// browseRoot is the in-memory read-only FUSE tree root. Directories are plain fs.Inode nodes
// built from routed paths; browseFile nodes fetch their bytes from the driver on each read
// rather than pre-extracting anything to disk. FUSE concerns stay in this build-tag-gated file,
// separate from the core extraction logic.
type browseRoot struct {
	fs.Inode
}

type browseFile struct {
	fs.Inode

	idx    *b2extract.Index
	driver *b2extract.Driver
	row    b2extract.EntryTableRow
	size   uint64
}

var (
	_ fs.NodeOpener    = (*browseFile)(nil)
	_ fs.NodeReader    = (*browseFile)(nil)
	_ fs.NodeGetattrer = (*browseFile)(nil)
)

func (f *browseFile) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = 0o444
	out.Size = f.size
	return 0
}

func (f *browseFile) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (f *browseFile) Read(ctx context.Context, fh fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	data, err := f.driver.ReadEntry(f.idx, f.row)
	if err != nil {
		return nil, syscall.EIO
	}
	if off >= int64(len(data)) {
		return fuse.ReadResultData(nil), 0
	}
	end := off + int64(len(dest))
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return fuse.ReadResultData(data[off:end]), 0
}

// runBrowse mounts a read-only view of indexPath's recovered path tree at mountPoint.
func runBrowse(indexPath, mountPoint string) error {
	idx, err := b2extract.OpenIndex(indexPath)
	if err != nil {
		return fmt.Errorf("failed to open index file: %w", err)
	}

	cfg, err := b2extract.NewConfig("",
		b2extract.WithHeaderPathRecovery(true),
		b2extract.WithContentPathRecovery(true),
	)
	if err != nil {
		idx.Close()
		return fmt.Errorf("failed to build config: %w", err)
	}
	driver := b2extract.NewDriver(cfg, nil, nil)

	routed, err := driver.BuildRouteTable(idx)
	if err != nil {
		idx.Close()
		return fmt.Errorf("failed to build route table: %w", err)
	}

	root := &browseRoot{}
	server, err := fs.Mount(mountPoint, root, &fs.Options{})
	if err != nil {
		idx.Close()
		return fmt.Errorf("failed to mount fuse: %w", err)
	}

	for _, re := range routed {
		addRoutedFile(&root.Inode, driver, idx, re)
	}

	fmt.Printf("mounted %s at %s, press Ctrl-C to unmount\n", indexPath, mountPoint)
	server.Wait()
	idx.Close()
	return nil
}

func addRoutedFile(root *fs.Inode, driver *b2extract.Driver, idx *b2extract.Index, re b2extract.RoutedEntry) {
	segs := strings.Split(re.RelPath, "/")
	if len(segs) == 0 {
		return
	}

	dir := root
	for _, seg := range segs[:len(segs)-1] {
		child := dir.GetChild(seg)
		if child == nil {
			child = dir.NewPersistentInode(context.Background(), &fs.Inode{}, fs.StableAttr{Mode: syscall.S_IFDIR})
			dir.AddChild(seg, child, true)
		}
		dir = child
	}

	file := &browseFile{idx: idx, driver: driver, row: re.Row, size: uint64(re.Row.AbsSize)}
	child := dir.NewPersistentInode(context.Background(), file, fs.StableAttr{Mode: syscall.S_IFREG})
	dir.AddChild(segs[len(segs)-1], child, true)
}
