package bytestrings

import "math"

// NoMatch is returned by [SearchMark] when the chunk neither contains the mark
// nor ends with a prefix of it.
const NoMatch = math.MinInt

// SearchMark searches source[offset:offset+length] for mark, resuming a match that
// covered the first matched bytes of mark at the end of the previous chunk.
//
// On a full match, it returns the index in source just past the last byte of the mark.
// The mark starts matched bytes before offset if the match began in the previous chunk.
// If the chunk ends partway through the mark, it returns -k, where k is the number of
// leading mark bytes matched at the tail of the chunk. Otherwise it returns [NoMatch].
func SearchMark(source []byte, offset, length int, mark []byte, matched int) int {
	if len(mark) == 0 {
		return offset
	}
	end, k := searchMark(source[offset:offset+length], mark, failureTable(mark), matched)
	switch {
	case end >= 0:
		return offset + end
	case k > 0:
		return -k
	default:
		return NoMatch
	}
}

// failureTable returns the KMP failure function of mark.
// fail[i] is the length of the longest proper prefix of mark[:i+1] that is also its suffix.
func failureTable(mark []byte) []int {
	fail := make([]int, len(mark))
	k := 0
	for i := 1; i < len(mark); i++ {
		for k > 0 && mark[i] != mark[k] {
			k = fail[k-1]
		}
		if mark[i] == mark[k] {
			k++
		}
		fail[i] = k
	}
	return fail
}

// searchMark scans chunk with k bytes of mark already matched.
// It returns the index just past a full match, or -1 and the new partial count.
func searchMark(chunk, mark []byte, fail []int, k int) (end, matched int) {
	if k < 0 || k >= len(mark) {
		k = 0
	}
	for i, b := range chunk {
		for k > 0 && b != mark[k] {
			k = fail[k-1]
		}
		if b == mark[k] {
			k++
		}
		if k == len(mark) {
			return i + 1, 0
		}
	}
	return -1, k
}

// MarkSearcher finds a delimiter in a byte stream delivered as a series of chunks.
// It carries the partial match count and the stream position between calls.
//
// The zero value is not usable. Use [NewMarkSearcher].
type MarkSearcher struct {
	mark     []byte
	fail     []int
	matched  int
	consumed int64
}

// NewMarkSearcher returns a searcher for mark. mark must not be empty.
func NewMarkSearcher(mark []byte) *MarkSearcher {
	if len(mark) == 0 {
		panic("bytestrings: empty mark")
	}
	return &MarkSearcher{
		mark: mark,
		fail: failureTable(mark),
	}
}

// Mark returns the delimiter being searched for.
func (s *MarkSearcher) Mark() []byte {
	return s.mark
}

// Search scans chunk, the next piece of the stream.
//
// If the mark is found, start is the stream offset of its first byte, which may lie in
// an earlier chunk, and end is the index in chunk just past it. Bytes after end have not
// been consumed; pass chunk[end:] to the next call to continue searching.
// If the mark is not found, the whole chunk is consumed.
func (s *MarkSearcher) Search(chunk []byte) (start int64, end int, found bool) {
	end, s.matched = searchMark(chunk, s.mark, s.fail, s.matched)
	if end < 0 {
		s.consumed += int64(len(chunk))
		return 0, 0, false
	}
	s.consumed += int64(end)
	return s.consumed - int64(len(s.mark)), end, true
}

// Partial returns the number of mark bytes matched at the end of the last chunk.
func (s *MarkSearcher) Partial() int {
	return s.matched
}

// Consumed returns the number of stream bytes scanned so far.
func (s *MarkSearcher) Consumed() int64 {
	return s.consumed
}

// Reset clears the carried state.
func (s *MarkSearcher) Reset() {
	s.matched = 0
	s.consumed = 0
}
