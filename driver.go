package b2extract

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Driver is C9, the extraction driver: it owns the run-scoped state (container cache, router
// memo) and drives a single pass over an index's name table, routing and writing every file.
type Driver struct {
	cfg        *Config
	logger     *runLogger
	shim       *Shim
	containers *ContainerCache
	router     *RouterState
	progress   ProgressFunc
}

// NewDriver builds a driver for a single run. Every field is fresh state; nothing here is a
// package-level singleton, so concurrent runs against different indexes never share a cache.
func NewDriver(cfg *Config, logFn LogFunc, progressFn ProgressFunc) *Driver {
	return &Driver{
		cfg:        cfg,
		logger:     newRunLogger(logFn),
		shim:       NewShim(logFn),
		containers: NewContainerCache(),
		router:     NewRouterState(),
		progress:   progressFn,
	}
}

// Run extracts indexPath's entries into cfg.OutputDir. The container cache is always closed on
// return, and reconcile always runs afterward, even if individual entries failed.
func (d *Driver) Run(indexPath string) error {
	defer d.containers.Close()

	idx, err := OpenIndex(indexPath)
	if err != nil {
		return err
	}
	defer idx.Close()

	records, err := idx.WalkNames()
	if err != nil {
		return err
	}

	var existing *ExistingIndex
	if d.cfg.SkipExistingFiles {
		existing, err = BuildExistingIndex(d.cfg.OutputDir)
		if err != nil {
			return err
		}
	}

	var logFile *os.File
	if !d.cfg.DryRun {
		if err := os.MkdirAll(d.cfg.OutputDir, 0o755); err != nil {
			return fmt.Errorf("%w: %s", ErrWriteIO, err)
		}
		logName := fmt.Sprintf("extract_log_%s.log", time.Now().Format("20060102_150405"))
		logFile, err = os.Create(filepath.Join(d.cfg.OutputDir, logName))
		if err != nil {
			d.logger.warnf("could not open extraction log: %s", err)
			logFile = nil
		} else {
			defer logFile.Close()
		}
	}

	total := len(records)
	for i, rec := range records {
		if d.progress != nil && total > 0 {
			d.progress(100 * float64(i+1) / float64(total))
		}
		if rec.IsDirectory() {
			continue
		}
		d.processEntrySafe(idx, rec, existing, logFile)
	}

	if err := Reconcile(d.cfg.OutputDir, d.logger, d.cfg.DryRun); err != nil {
		d.logger.warnf("reconcile failed: %s", err)
	}

	d.logger.donef("extraction complete: %d entries", total)
	return nil
}

// processEntrySafe isolates a single entry's panics (a corrupt record should never abort the
// whole run) behind the normal error-returning path.
func (d *Driver) processEntrySafe(idx *Index, rec NameRecord, existing *ExistingIndex, logFile *os.File) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.errorf("panic processing %s: %v", rec.Name, r)
			d.writeLog(logFile, rec.Name, "error", fmt.Sprintf("panic: %v", r))
		}
	}()
	d.processEntry(idx, rec, existing, logFile)
}

func (d *Driver) processEntry(idx *Index, rec NameRecord, existing *ExistingIndex, logFile *os.File) {
	if rec.FileNumber < 0 {
		d.logger.skipf("%s: negative file number", rec.Name)
		d.writeLog(logFile, rec.Name, "skip", "negative file number")
		return
	}

	row, err := idx.EntryRow(uint32(rec.FileNumber))
	if err != nil {
		d.logger.skipf("%s: %s", rec.Name, err)
		d.writeLog(logFile, rec.Name, "skip", err.Error())
		return
	}

	bd, err := idx.ResolveBlock(row.BlockOffset)
	if err != nil {
		d.logger.skipf("%s: %s", rec.Name, err)
		d.writeLog(logFile, rec.Name, "skip", err.Error())
		return
	}
	containerName := filepath.Base(bd.ContainerPath)

	ext := strings.ToLower(path.Ext(rec.Name))
	stem := strings.TrimSuffix(path.Base(rec.Name), path.Ext(rec.Name))

	var dataOnce sync.Once
	var data []byte
	var dataErr error
	loadData := func() ([]byte, error) {
		dataOnce.Do(func() {
			data, dataErr = d.entryData(idx, row)
		})
		return data, dataErr
	}

	var recovered RecoveredPath
	if isRecoverableExt(ext) && (d.cfg.EnableHeaderPath || d.cfg.EnableContentPath) {
		if buf, derr := loadData(); derr == nil {
			recovered = RecoverPath(stem, ext, buf, d.cfg.EnableHeaderPath, d.cfg.EnableContentPath)
		}
	}

	decision := d.router.RouteEntry(d.cfg, rec.Name, existing, recovered, containerName)
	if decision.Skip {
		d.logger.skipf("%s: %s", rec.Name, decision.SkipReason)
		d.writeLog(logFile, rec.Name, "skip", decision.SkipReason)
		return
	}

	if d.cfg.DryRun {
		d.logger.infof("%s -> %s (dry-run)", rec.Name, decision.RelPath)
		d.writeLog(logFile, rec.Name, "dry-run", decision.RelPath)
		return
	}

	buf, err := loadData()
	if err != nil {
		d.logger.errorf("%s: %s", rec.Name, err)
		d.writeLog(logFile, rec.Name, "error", err.Error())
		return
	}

	outPath := filepath.Join(d.cfg.OutputDir, filepath.FromSlash(decision.RelPath))
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		d.logger.errorf("%s: %s", rec.Name, fmt.Errorf("%w: %s", ErrWriteIO, err))
		d.writeLog(logFile, rec.Name, "error", err.Error())
		return
	}
	if err := os.WriteFile(outPath, buf, 0o644); err != nil {
		d.logger.errorf("%s: %s", rec.Name, fmt.Errorf("%w: %s", ErrWriteIO, err))
		d.writeLog(logFile, rec.Name, "error", err.Error())
		return
	}

	d.logger.infof("%s -> %s", rec.Name, decision.RelPath)
	d.writeLog(logFile, rec.Name, "ok", decision.RelPath)
}

// entryData resolves row's block, reads its chunk list, assembles the decompressed window, and
// slices out exactly [abs_offset, abs_offset+abs_size), an entry's payload within a (possibly
// multi-entry) container window. A negative offset or size, or a range that runs past the
// assembled window, is reported as ErrMalformedEntry.
func (d *Driver) entryData(idx *Index, row EntryTableRow) ([]byte, error) {
	bd, err := idx.ResolveBlock(row.BlockOffset)
	if err != nil {
		return nil, err
	}
	chunks, needed, err := idx.ReadChunkList(bd, row.AbsOffset, row.AbsSize)
	if err != nil {
		return nil, err
	}
	window, err := AssembleWindow(d.containers, d.shim, bd.ContainerPath, chunks, needed)
	if err != nil {
		return nil, err
	}

	start := int64(row.AbsOffset)
	end := start + int64(row.AbsSize)
	if start < 0 || row.AbsSize < 0 || end > int64(len(window)) {
		return nil, fmt.Errorf("%w: abs_offset=%d abs_size=%d window=%d", ErrMalformedEntry, row.AbsOffset, row.AbsSize, len(window))
	}
	return window[start:end], nil
}

func (d *Driver) writeLog(f *os.File, name, status, detail string) {
	if f == nil {
		return
	}
	fmt.Fprintf(f, "%s\t%s\t%s\n", status, name, detail)
}

// RoutedEntry pairs a routed output-relative path with the entry table row needed to read it.
type RoutedEntry struct {
	RelPath string
	Row     EntryTableRow
}

// BuildRouteTable walks idx's name table and returns the routing decision for every non-skipped
// file entry, without writing anything to disk. The browse front end uses this to build a
// directory tree up front, then fetches file contents lazily through ReadEntry.
func (d *Driver) BuildRouteTable(idx *Index) ([]RoutedEntry, error) {
	records, err := idx.WalkNames()
	if err != nil {
		return nil, err
	}

	var existing *ExistingIndex
	if d.cfg.SkipExistingFiles {
		existing, err = BuildExistingIndex(d.cfg.OutputDir)
		if err != nil {
			return nil, err
		}
	}

	var out []RoutedEntry
	for _, rec := range records {
		if rec.IsDirectory() || rec.FileNumber < 0 {
			continue
		}
		row, err := idx.EntryRow(uint32(rec.FileNumber))
		if err != nil {
			continue
		}
		bd, err := idx.ResolveBlock(row.BlockOffset)
		if err != nil {
			continue
		}
		containerName := filepath.Base(bd.ContainerPath)

		ext := strings.ToLower(path.Ext(rec.Name))
		stem := strings.TrimSuffix(path.Base(rec.Name), path.Ext(rec.Name))
		var recovered RecoveredPath
		if isRecoverableExt(ext) && (d.cfg.EnableHeaderPath || d.cfg.EnableContentPath) {
			if data, derr := d.entryData(idx, row); derr == nil {
				recovered = RecoverPath(stem, ext, data, d.cfg.EnableHeaderPath, d.cfg.EnableContentPath)
			}
		}

		decision := d.router.RouteEntry(d.cfg, rec.Name, existing, recovered, containerName)
		if decision.Skip {
			continue
		}
		out = append(out, RoutedEntry{RelPath: decision.RelPath, Row: row})
	}

	return out, nil
}

// ReadEntry decompresses and slices row's payload. Exported for front ends, like the CLI's
// browse mode, that need entry bytes outside of a full Run.
func (d *Driver) ReadEntry(idx *Index, row EntryTableRow) ([]byte, error) {
	return d.entryData(idx, row)
}
