package ragqa

// SplitChunks cuts text into fixed-size rune windows. The last chunk may be
// shorter; empty input yields no chunks.
func SplitChunks(text string, size int) []string {
	if size < 1 || text == "" {
		return nil
	}
	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
