package memtable

import (
	"math/rand/v2"
	"sync/atomic"
)

const maxHeight = 12

// branching controls the geometric height distribution: each level has a
// 1/branching chance of extending to the next.
const branching = 4

// node is a skip list node. key points into arena-owned memory and is
// never mutated after insertion; forward holds one atomic pointer per
// level the node participates in. Publication is bottom-up: at each
// level, a new node's forward pointer is filled in before its
// predecessor at that level is linked to point at it, so a concurrent
// reader following forward links never observes a partially-built node.
type node struct {
	key     []byte
	forward []atomic.Pointer[node]
}

func newNode(key []byte, height int) *node {
	return &node{key: key, forward: make([]atomic.Pointer[node], height)}
}

func (n *node) next(level int) *node {
	return n.forward[level].Load()
}

func (n *node) setNext(level int, v *node) {
	n.forward[level].Store(v)
}

// skipList is a lock-free-for-readers, single-writer-at-a-time ordered
// set of byte slices, compared with a caller-supplied function. It
// never copies or frees a key: callers own key's backing storage (the
// arena, in this package's usage) for the skip list's lifetime.
type skipList struct {
	compare func(a, b []byte) int
	head    *node
	height  atomic.Int32 // 1-indexed: number of levels currently in use
}

func newSkipList(compare func(a, b []byte) int) *skipList {
	return &skipList{
		compare: compare,
		head:    newNode(nil, maxHeight),
		height:  atomic.Int32{},
	}
}

func (s *skipList) randomHeight() int {
	h := 1
	for h < maxHeight && rand.IntN(branching) == 0 {
		h++
	}
	return h
}

func (s *skipList) curHeight() int {
	h := int(s.height.Load())
	if h < 1 {
		return 1
	}
	return h
}

// findGreaterOrEqual walks from head down to level 0, returning the
// first node whose key is >= key (or nil at the tail), and optionally
// records each level's rightmost predecessor in prev for Insert's use.
func (s *skipList) findGreaterOrEqual(key []byte, prev []*node) *node {
	x := s.head
	level := s.curHeight() - 1
	for {
		next := x.next(level)
		if next != nil && s.compare(next.key, key) < 0 {
			x = next
			continue
		}
		if prev != nil {
			prev[level] = x
		}
		if level == 0 {
			return next
		}
		level--
	}
}

// findLessThan returns the last node strictly less than key, or head if
// none.
func (s *skipList) findLessThan(key []byte) *node {
	x := s.head
	level := s.curHeight() - 1
	for {
		next := x.next(level)
		if next != nil && s.compare(next.key, key) < 0 {
			x = next
			continue
		}
		if level == 0 {
			return x
		}
		level--
	}
}

// findLast returns the last node in the list, or head if it is empty.
func (s *skipList) findLast() *node {
	x := s.head
	level := s.curHeight() - 1
	for {
		next := x.next(level)
		if next != nil {
			x = next
			continue
		}
		if level == 0 {
			return x
		}
		level--
	}
}

// Insert adds key to the list. key must not already be present in a way
// that matters to the caller — duplicate keys (as compare sees them) are
// permitted, and a new key is placed before any existing keys that
// compare equal to it. Memtable never relies on that order, since every
// entry's tag makes it unique.
func (s *skipList) Insert(key []byte) {
	prev := make([]*node, maxHeight)
	s.findGreaterOrEqual(key, prev)

	height := s.randomHeight()
	if cur := s.curHeight(); height > cur {
		for i := cur; i < height; i++ {
			prev[i] = s.head
		}
		s.height.Store(int32(height))
	}

	n := newNode(key, height)
	for i := 0; i < height; i++ {
		n.setNext(i, prev[i].next(i))
		prev[i].setNext(i, n)
	}
}

// iterator walks a skipList.
type iterator struct {
	list *skipList
	node *node
}

func (s *skipList) NewIterator() *iterator {
	return &iterator{list: s}
}

func (it *iterator) Valid() bool { return it.node != nil }

func (it *iterator) Key() []byte { return it.node.key }

func (it *iterator) Next() { it.node = it.node.next(0) }

func (it *iterator) Prev() {
	if it.node == nil {
		it.node = it.list.findLast()
	} else {
		it.node = it.list.findLessThan(it.node.key)
	}
	if it.node == it.list.head {
		it.node = nil
	}
}

func (it *iterator) Seek(key []byte) {
	it.node = it.list.findGreaterOrEqual(key, nil)
}

func (it *iterator) SeekToFirst() {
	it.node = it.list.head.next(0)
}

func (it *iterator) SeekToLast() {
	last := it.list.findLast()
	if last == it.list.head {
		it.node = nil
	} else {
		it.node = last
	}
}
