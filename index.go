package b2extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	offEntryTable      = 68
	offEntryCountHint  = 72
	offNamesSection    = 92
	offNameCountHint   = 96
	entryTableRowSize  = 16
	nameRecordSize     = 16
	maxBadRun          = 4096
	containerExtension = ".b2container"
)

// EntryTableRow is the 16-byte row addressed by entry_index*16 from entryTableOffset
type EntryTableRow struct {
	BlockOffset int32
	Reserved    int32
	AbsOffset   int32
	AbsSize     int32
}

// NameRecord is one 16-byte record from the name table
type NameRecord struct {
	NameOffset uint64
	FileNumber int32
	Child      int32
	Name       string
}

// IsDirectory reports whether this record marks a directory (retained but never emitted as a file).
func (n NameRecord) IsDirectory() bool { return n.Child > 0 }

// LogicalEntry is one extractable unit: a name paired with its row in the entry table.
type LogicalEntry struct {
	EntryIndex  uint32
	LogicalName string
}

// BlockDescriptor describes the container and chunk layout for one entry
type BlockDescriptor struct {
	ContainerPath    string
	PayloadOffset    uint64
	ContainerID      int32
	SizeTableOffset  uint64
	ExtraCountMinus1 int32
}

// Chunk is one compressed run inside a container.
type Chunk struct {
	CompOffset int64
	CompSize   int32
	UncSize    int32
}

// ChunkList is the base chunk plus zero or more extras that together form one entry's payload.
type ChunkList struct {
	Chunks []Chunk
}

// TotalUncompressed sums the uncompressed size of every chunk.
func (c ChunkList) TotalUncompressed() int64 {
	var total int64
	for _, ch := range c.Chunks {
		total += int64(ch.UncSize)
	}
	return total
}

// Index is an open .b2index file: the C3 index parser.
type Index struct {
	path string
	dir  string
	f    *os.File
	br   *binReader
	size int64

	EntryTableOffset   uint32
	NamesSectionOffset uint32
	EntryCountHint     int32
	NameCountHint      int32
}

// OpenIndex opens and validates the header of a .b2index file.
func OpenIndex(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	idx := &Index{
		path: path,
		dir:  filepath.Dir(path),
		f:    f,
		br:   newBinReader(f),
		size: st.Size(),
	}

	if idx.size < offNameCountHint+4 {
		f.Close()
		return nil, fmt.Errorf("%w: file too small (%d bytes)", ErrIndexMalformed, idx.size)
	}

	entryTableOffset, err := idx.br.u32(offEntryTable)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrIndexMalformed, err)
	}
	entryCountHint, err := idx.br.i32(offEntryCountHint)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrIndexMalformed, err)
	}
	namesSectionOffset, err := idx.br.u32(offNamesSection)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrIndexMalformed, err)
	}
	nameCountHint, err := idx.br.i32(offNameCountHint)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrIndexMalformed, err)
	}

	if int64(entryTableOffset) >= idx.size || int64(namesSectionOffset) >= idx.size {
		f.Close()
		return nil, fmt.Errorf("%w: table offsets out of range (entry=%d names=%d size=%d)",
			ErrIndexMalformed, entryTableOffset, namesSectionOffset, idx.size)
	}

	idx.EntryTableOffset = entryTableOffset
	idx.EntryCountHint = entryCountHint
	idx.NamesSectionOffset = namesSectionOffset
	idx.NameCountHint = nameCountHint

	return idx, nil
}

// Close closes the underlying index file.
func (idx *Index) Close() error {
	return idx.f.Close()
}

// Dir returns the directory the index lives in, the base for container resolution.
func (idx *Index) Dir() string { return idx.dir }

// WalkNames walks the name table starting at NamesSectionOffset, quickbms-style: fixed 16-byte
// records, stopping at EOF or after more than maxBadRun consecutive malformed records. A record
// is malformed when its name offset is zero or out of bounds, its file number is negative, or
// the string at the name offset is empty. One successful record resets the bad-run counter.
// Directory records (Child > 0) are included in the result but callers must skip them when
// emitting files.
func (idx *Index) WalkNames() ([]NameRecord, error) {
	var records []NameRecord
	badRun := 0
	pos := int64(idx.NamesSectionOffset)

	for {
		if pos+nameRecordSize > idx.size {
			break
		}

		nameOffset, err := idx.br.u64(pos)
		if err != nil {
			break
		}
		fileNumber, err := idx.br.i32(pos + 8)
		if err != nil {
			break
		}
		child, err := idx.br.i32(pos + 12)
		if err != nil {
			break
		}

		malformed := nameOffset == 0 || int64(nameOffset) >= idx.size || fileNumber < 0
		var name string
		if !malformed {
			name, err = idx.br.nulString(int64(nameOffset), 4096)
			if err != nil || name == "" {
				malformed = true
			}
		}

		if malformed {
			badRun++
			pos += nameRecordSize
			if badRun > maxBadRun {
				break
			}
			continue
		}

		badRun = 0
		records = append(records, NameRecord{
			NameOffset: nameOffset,
			FileNumber: fileNumber,
			Child:      child,
			Name:       name,
		})
		pos += nameRecordSize
	}

	return records, nil
}

// EntryRow reads the entry table row for the given logical entry index.
func (idx *Index) EntryRow(entryIndex uint32) (EntryTableRow, error) {
	pos := int64(idx.EntryTableOffset) + int64(entryIndex)*entryTableRowSize
	if pos < 0 || pos+entryTableRowSize > idx.size {
		return EntryTableRow{}, fmt.Errorf("%w: entry %d row at %d exceeds file size %d", ErrEntryOutOfRange, entryIndex, pos, idx.size)
	}

	blockOffset, err := idx.br.i32(pos)
	if err != nil {
		return EntryTableRow{}, fmt.Errorf("%w: %s", ErrEntryOutOfRange, err)
	}
	reserved, err := idx.br.i32(pos + 4)
	if err != nil {
		return EntryTableRow{}, fmt.Errorf("%w: %s", ErrEntryOutOfRange, err)
	}
	absOffset, err := idx.br.i32(pos + 8)
	if err != nil {
		return EntryTableRow{}, fmt.Errorf("%w: %s", ErrEntryOutOfRange, err)
	}
	absSize, err := idx.br.i32(pos + 12)
	if err != nil {
		return EntryTableRow{}, fmt.Errorf("%w: %s", ErrEntryOutOfRange, err)
	}

	return EntryTableRow{BlockOffset: blockOffset, Reserved: reserved, AbsOffset: absOffset, AbsSize: absSize}, nil
}

// ResolveBlock reads the block descriptor at blockOffset: the archive-spec pointer (and from it
// the container path) plus the chunk layout that follows at blockOffset+16.
func (idx *Index) ResolveBlock(blockOffset int32) (*BlockDescriptor, error) {
	if blockOffset <= 0 || int64(blockOffset) >= idx.size {
		return nil, fmt.Errorf("%w: block offset %d out of range", ErrEntryOutOfRange, blockOffset)
	}

	specPtr, err := idx.br.u64(int64(blockOffset))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryOutOfRange, err)
	}
	if specPtr == 0 || int64(specPtr) >= idx.size {
		return nil, fmt.Errorf("%w: archive spec pointer %d out of range", ErrEntryOutOfRange, specPtr)
	}
	nameOffsetPtr, err := idx.br.u32(int64(specPtr))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryOutOfRange, err)
	}
	if int64(nameOffsetPtr) >= idx.size {
		return nil, fmt.Errorf("%w: container name offset %d out of range", ErrEntryOutOfRange, nameOffsetPtr)
	}
	containerName, err := idx.br.nulString(int64(nameOffsetPtr), 512)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryOutOfRange, err)
	}
	if containerName == "" {
		return nil, fmt.Errorf("%w: empty container name", ErrEntryOutOfRange)
	}
	if !strings.HasSuffix(strings.ToLower(containerName), containerExtension) {
		containerName += containerExtension
	}

	chunkBase := int64(blockOffset) + 16
	if chunkBase+24 > idx.size {
		return nil, fmt.Errorf("%w: chunk layout at %d exceeds file size", ErrEntryOutOfRange, chunkBase)
	}
	payloadOffset, err := idx.br.u64(chunkBase)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryOutOfRange, err)
	}
	containerID, err := idx.br.i32(chunkBase + 8)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryOutOfRange, err)
	}
	sizeTableOffset, err := idx.br.u64(chunkBase + 12)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryOutOfRange, err)
	}
	extraCountMinus1, err := idx.br.i32(chunkBase + 20)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryOutOfRange, err)
	}

	return &BlockDescriptor{
		ContainerPath:    filepath.Join(idx.dir, containerName),
		PayloadOffset:    payloadOffset,
		ContainerID:      containerID,
		SizeTableOffset:  sizeTableOffset,
		ExtraCountMinus1: extraCountMinus1,
	}, nil
}

// ReadChunkList reads the size table for bd and computes the window length needed to cover
// abs_offset+abs_size, clamped to the chunks' total uncompressed size.
func (idx *Index) ReadChunkList(bd *BlockDescriptor, absOffset, absSize int32) (*ChunkList, int64, error) {
	if bd.SizeTableOffset == 0 || int64(bd.SizeTableOffset)+12 > idx.size {
		return nil, 0, fmt.Errorf("%w: size table offset %d out of range", ErrEntryOutOfRange, bd.SizeTableOffset)
	}

	baseUnc, err := idx.br.u64(int64(bd.SizeTableOffset))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrEntryOutOfRange, err)
	}
	baseComp, err := idx.br.i32(int64(bd.SizeTableOffset) + 8)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrEntryOutOfRange, err)
	}

	chunks := []Chunk{{
		CompOffset: int64(bd.PayloadOffset),
		CompSize:   baseComp,
		UncSize:    int32(baseUnc),
	}}

	extraCount := 0
	if bd.ExtraCountMinus1 >= 0 {
		extraCount = int(bd.ExtraCountMinus1) + 1
	}

	extraBase := int64(bd.SizeTableOffset) + 12
	for i := 0; i < extraCount; i++ {
		pos := extraBase + int64(i)*12
		if pos+12 > idx.size {
			return nil, 0, fmt.Errorf("%w: extra chunk %d at %d exceeds file size", ErrEntryOutOfRange, i, pos)
		}
		unc, err := idx.br.i32(pos)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %s", ErrEntryOutOfRange, err)
		}
		start, err := idx.br.i32(pos + 4)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %s", ErrEntryOutOfRange, err)
		}
		end, err := idx.br.i32(pos + 8)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %s", ErrEntryOutOfRange, err)
		}
		if end < start {
			return nil, 0, fmt.Errorf("%w: extra chunk %d has end %d before start %d", ErrMalformedEntry, i, end, start)
		}
		chunks = append(chunks, Chunk{
			CompOffset: int64(bd.PayloadOffset) + int64(start),
			CompSize:   end - start,
			UncSize:    unc,
		})
	}

	list := &ChunkList{Chunks: chunks}
	needed := list.TotalUncompressed()
	want := int64(absOffset) + int64(absSize)
	if want < needed {
		needed = want
	}
	if needed < 0 {
		needed = 0
	}

	return list, needed, nil
}
