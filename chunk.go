package b2extract

// AssembleWindow is the C4 chunk assembler: it reads every chunk in chunks through cc,
// decompresses (or, for store-mode chunks where compressed size equals uncompressed size, copies
// verbatim) through shim, and concatenates the results into one buffer of length needed. The
// assembler is the sole place that decides store vs decompress - Read/Decompress below it only
// ever do what they're told.
func AssembleWindow(cc *ContainerCache, shim *Shim, containerPath string, chunks *ChunkList, needed int64) ([]byte, error) {
	out := make([]byte, needed)
	cursor := int64(0)

	for _, ch := range chunks.Chunks {
		if cursor >= needed {
			break
		}

		raw, err := cc.Read(containerPath, ch.CompOffset, int(ch.CompSize))
		if err != nil {
			return nil, err
		}

		var part []byte
		if ch.CompSize == ch.UncSize {
			part = raw
		} else {
			part = shim.Decompress(raw, int(ch.UncSize))
		}

		remaining := needed - cursor
		if int64(len(part)) > remaining {
			part = part[:remaining]
		}
		copy(out[cursor:], part)
		cursor += int64(len(part))
	}

	return out, nil
}
