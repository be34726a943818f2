package bot

// chunkText splits text into rune-safe segments of at most size runes.
// Each segment is sent as a separate outbound message; the chat transport
// rejects messages over its own length limit, so size stays below it.
func chunkText(text string, size int) []string {
	if text == "" {
		return []string{""}
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
