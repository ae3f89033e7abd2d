package token

// Hideset is an immutable set of macro names attached to a token during
// preprocessing. A macro whose name is in a token's hideset must not be
// re-expanded at that token; this is what terminates the rescan loop.
//
// Sets are represented as singly linked lists and are never mutated
// after creation, so nodes may be shared freely between tokens.
type Hideset struct {
	Next *Hideset
	Name string
}

// NewHideset returns a single-element hideset.
func NewHideset(name string) *Hideset {
	return &Hideset{Name: name}
}

// Contains reports whether name is in the set.
func (hs *Hideset) Contains(name string) bool {
	for ; hs != nil; hs = hs.Next {
		if hs.Name == name {
			return true
		}
	}
	return false
}

// Union returns hs1 ∪ hs2. hs1's nodes are copied; hs2 is linked as the
// shared tail.
func (hs1 *Hideset) Union(hs2 *Hideset) *Hideset {
	head := Hideset{}
	cur := &head
	for ; hs1 != nil; hs1 = hs1.Next {
		cur.Next = NewHideset(hs1.Name)
		cur = cur.Next
	}
	cur.Next = hs2
	return head.Next
}

// Intersection returns hs1 ∩ hs2.
func (hs1 *Hideset) Intersection(hs2 *Hideset) *Hideset {
	head := Hideset{}
	cur := &head
	for ; hs1 != nil; hs1 = hs1.Next {
		if hs2.Contains(hs1.Name) {
			cur.Next = NewHideset(hs1.Name)
			cur = cur.Next
		}
	}
	return head.Next
}

// AddHideset copies the token list tok, unioning hs into every copied
// token's hideset, and returns the new list.
func AddHideset(tok *Token, hs *Hideset) *Token {
	head := Token{}
	cur := &head
	for ; tok != nil; tok = tok.Next {
		t := tok.Copy()
		t.Hideset = t.Hideset.Union(hs)
		cur.Next = t
		cur = cur.Next
	}
	return head.Next
}
