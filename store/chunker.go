package store

// ChunkText splits text into overlapping windows for independent
// embedding. Chunk i starts at byte offset i*(size-overlap) and spans at
// most size bytes, so consecutive chunks share exactly overlap bytes and
// the final chunk may be shorter. Concatenating the first chunk with
// every following chunk minus its leading overlap reconstructs the input.
func ChunkText(text string, size, overlap int) []*PersonaChunk {
	if text == "" {
		return nil
	}
	if size <= 0 || overlap < 0 || overlap >= size {
		return []*PersonaChunk{{Seq: 0, Offset: 0, Content: text}}
	}
	if len(text) <= size {
		return []*PersonaChunk{{Seq: 0, Offset: 0, Content: text}}
	}

	step := size - overlap
	chunks := []*PersonaChunk{}
	for start, seq := 0, 0; start < len(text); start, seq = start+step, seq+1 {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, &PersonaChunk{
			Seq:     seq,
			Offset:  start,
			Content: text[start:end],
		})
		if end == len(text) {
			break
		}
	}
	return chunks
}
