package encoder

import "strings"

const (
	clipImageSize     = 224
	clipContextLength = 77
	clipBOSToken      = 49406
	clipEOSToken      = 49407
	clipVocabSize     = 49408
)

// tokenizeCLIP produces padded CLIP-style token IDs and an attention mask for
// text: BOS, hash-bucketed word tokens, EOS, zero padding. A hash tokenizer is
// a stand-in for a full BPE vocabulary; it keeps distinct words distinct,
// which is sufficient for models exported with a hash-bucket embedding layer
// and for exercising the inference path.
func tokenizeCLIP(text string) (inputIDs, attentionMask []int64) {
	inputIDs = make([]int64, clipContextLength)
	attentionMask = make([]int64, clipContextLength)

	inputIDs[0] = clipBOSToken
	attentionMask[0] = 1

	pos := 1
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if pos >= clipContextLength-1 {
			break
		}
		inputIDs[pos] = int64(hashString(word) % (clipVocabSize - 2))
		attentionMask[pos] = 1
		pos++
	}
	if pos < clipContextLength {
		inputIDs[pos] = clipEOSToken
		attentionMask[pos] = 1
	}
	return inputIDs, attentionMask
}
