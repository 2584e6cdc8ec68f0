package object

// List is a doubly-linked sequence of String elements supporting O(1)
// push/pop at both ends and O(distance) indexed access, per the Open
// Question decision in SPEC_FULL.md §11 (true linked list instead of a
// slice that gets rebuilt on every trim).
type List struct {
	head, tail *listNode
	length     int
}

type listNode struct {
	value      *String
	prev, next *listNode
}

func (*List) Kind() Kind { return KindList }

// NewList returns an empty list.
func NewList() *List { return &List{} }

// Len returns the number of elements.
func (l *List) Len() int { return l.length }

// PushLeft inserts v at the head (LPUSH).
func (l *List) PushLeft(v *String) {
	n := &listNode{value: v, next: l.head}
	if l.head != nil {
		l.head.prev = n
	} else {
		l.tail = n
	}
	l.head = n
	l.length++
}

// PushRight inserts v at the tail (RPUSH).
func (l *List) PushRight(v *String) {
	n := &listNode{value: v, prev: l.tail}
	if l.tail != nil {
		l.tail.next = n
	} else {
		l.head = n
	}
	l.tail = n
	l.length++
}

// PopLeft removes and returns the head element, or (nil, false) if empty.
func (l *List) PopLeft() (*String, bool) {
	if l.head == nil {
		return nil, false
	}
	n := l.head
	l.head = n.next
	if l.head != nil {
		l.head.prev = nil
	} else {
		l.tail = nil
	}
	l.length--
	return n.value, true
}

// PopRight removes and returns the tail element, or (nil, false) if empty.
func (l *List) PopRight() (*String, bool) {
	if l.tail == nil {
		return nil, false
	}
	n := l.tail
	l.tail = n.prev
	if l.tail != nil {
		l.tail.next = nil
	} else {
		l.head = nil
	}
	l.length--
	return n.value, true
}

// nodeAt turns a possibly-negative index (-1 = last) into the
// corresponding forward node, or nil if out of range.
func (l *List) nodeAt(index int) *listNode {
	if index < 0 {
		index += l.length
	}
	if index < 0 || index >= l.length {
		return nil
	}
	if index <= l.length/2 {
		n := l.head
		for i := 0; i < index; i++ {
			n = n.next
		}
		return n
	}
	n := l.tail
	for i := l.length - 1; i > index; i-- {
		n = n.prev
	}
	return n
}

// Index returns the element at a possibly-negative index (LINDEX).
func (l *List) Index(index int) (*String, bool) {
	n := l.nodeAt(index)
	if n == nil {
		return nil, false
	}
	return n.value, true
}

// Set overwrites the element at a possibly-negative index (LSET). Returns
// false if the absolute index is out of range, per spec.md §4.2.
func (l *List) Set(index int, v *String) bool {
	n := l.nodeAt(index)
	if n == nil {
		return false
	}
	n.value = v
	return true
}

// clampRange implements spec.md §4.2's LRANGE/LTRIM clamping: negative
// indices count from the tail, and a zero-length result is returned when
// start > end after clamping.
func (l *List) clampRange(start, end int) (int, int, bool) {
	n := l.length
	if start < 0 {
		start += n
	}
	if end < 0 {
		end += n
	}
	if start < 0 {
		start = 0
	}
	if end >= n {
		end = n - 1
	}
	if start > end || n == 0 {
		return 0, 0, false
	}
	return start, end, true
}

// Range returns a copy of the inclusive [start, end] sub-range after
// clamping (LRANGE).
func (l *List) Range(start, end int) []*String {
	s, e, ok := l.clampRange(start, end)
	if !ok {
		return nil
	}
	out := make([]*String, 0, e-s+1)
	n := l.nodeAt(s)
	for i := s; i <= e && n != nil; i++ {
		out = append(out, n.value)
		n = n.next
	}
	return out
}

// Trim retains only the clamped inclusive [start, end] sub-range (LTRIM).
func (l *List) Trim(start, end int) {
	s, e, ok := l.clampRange(start, end)
	if !ok {
		l.head, l.tail, l.length = nil, nil, 0
		return
	}
	newHead := l.nodeAt(s)
	newTail := l.nodeAt(e)
	newHead.prev = nil
	newTail.next = nil
	l.head, l.tail = newHead, newTail
	l.length = e - s + 1
}

// RemoveEqual removes up to |count| elements equal to target (by decoded
// byte value). count >= 0 scans head-to-tail, count < 0 scans
// tail-to-head, count == 0 removes every match. Returns the number
// removed, per spec.md §4.2 LREM.
func (l *List) RemoveEqual(count int, target *String) int {
	removed := 0
	limit := count
	if limit < 0 {
		limit = -limit
	}
	if count >= 0 {
		n := l.head
		for n != nil && (limit == 0 || removed < limit) {
			next := n.next
			if n.value.Equal(target) {
				l.unlink(n)
				removed++
			}
			n = next
		}
	} else {
		n := l.tail
		for n != nil && removed < limit {
			prev := n.prev
			if n.value.Equal(target) {
				l.unlink(n)
				removed++
			}
			n = prev
		}
	}
	return removed
}

func (l *List) unlink(n *listNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	l.length--
}

// InsertBefore/InsertAfter implement LINSERT relative to the first
// element equal to pivot (by decoded byte value). Returns false if pivot
// is not found.
func (l *List) InsertBefore(pivot, v *String) bool {
	n := l.findEqual(pivot)
	if n == nil {
		return false
	}
	l.insertBeforeNode(n, v)
	return true
}

func (l *List) InsertAfter(pivot, v *String) bool {
	n := l.findEqual(pivot)
	if n == nil {
		return false
	}
	if n.next == nil {
		l.PushRight(v)
		return true
	}
	l.insertBeforeNode(n.next, v)
	return true
}

func (l *List) findEqual(target *String) *listNode {
	for n := l.head; n != nil; n = n.next {
		if n.value.Equal(target) {
			return n
		}
	}
	return nil
}

func (l *List) insertBeforeNode(n *listNode, v *String) {
	nn := &listNode{value: v, prev: n.prev, next: n}
	if n.prev != nil {
		n.prev.next = nn
	} else {
		l.head = nn
	}
	n.prev = nn
	l.length++
}

// Clone returns an independent deep copy (see package-level Clone).
func (l *List) Clone() *List {
	out := NewList()
	for n := l.head; n != nil; n = n.next {
		out.PushRight(n.value.Clone())
	}
	return out
}

// ToSlice materializes the whole list (used by RDB/AOF serialization).
func (l *List) ToSlice() []*String {
	out := make([]*String, 0, l.length)
	for n := l.head; n != nil; n = n.next {
		out = append(out, n.value)
	}
	return out
}
