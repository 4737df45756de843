package queue

// PositionList is an ordered list of items with a resumable cursor.
//
// The session send pipeline drains a [Batch] into a PositionList and advances the
// cursor as items are fully written. Reset reuses the backing array.
type PositionList[T any] struct {
	items []T
	pos   int
}

// Append adds item to the end of the list.
func (l *PositionList[T]) Append(item T) {
	l.items = append(l.items, item)
}

// AppendSlice adds items to the end of the list.
func (l *PositionList[T]) AppendSlice(items []T) {
	l.items = append(l.items, items...)
}

// Len returns the total number of items, including those before the cursor.
func (l *PositionList[T]) Len() int {
	return len(l.items)
}

// Position returns the number of items already consumed.
func (l *PositionList[T]) Position() int {
	return l.pos
}

// Items returns all items, including those before the cursor.
func (l *PositionList[T]) Items() []T {
	return l.items
}

// Remaining returns the items at and after the cursor.
func (l *PositionList[T]) Remaining() []T {
	return l.items[l.pos:]
}

// Current returns the item at the cursor.
// ok is false if all items have been consumed.
func (l *PositionList[T]) Current() (item T, ok bool) {
	if l.pos >= len(l.items) {
		return item, false
	}
	return l.items[l.pos], true
}

// Advance moves the cursor forward by n items, stopping at the end of the list.
func (l *PositionList[T]) Advance(n int) {
	l.pos = min(l.pos+n, len(l.items))
}

// Done reports whether the cursor has reached the end of the list.
func (l *PositionList[T]) Done() bool {
	return l.pos >= len(l.items)
}

// Reset clears the list and rewinds the cursor.
func (l *PositionList[T]) Reset() {
	clear(l.items)
	l.items = l.items[:0]
	l.pos = 0
}
