package prefixset

// DomainSuffixTrie is a trie of domain labels, keyed from the rightmost label.
type DomainSuffixTrie struct {
	Included bool
	Children map[string]*DomainSuffixTrie
}

// Insert adds a suffix rule to the trie.
// A shorter suffix subsumes longer ones below it: inserting "example.com"
// after "www.example.com" drops the "www" node.
func (t *DomainSuffixTrie) Insert(suffix string) {
	node := t
	for label, rest := lastLabel(suffix); ; label, rest = lastLabel(rest) {
		if node.Children == nil {
			node.Children = make(map[string]*DomainSuffixTrie)
		}
		child, ok := node.Children[label]
		if !ok {
			child = &DomainSuffixTrie{}
			node.Children[label] = child
		}
		if child.Included {
			return
		}
		if rest == "" {
			child.Included = true
			child.Children = nil
			return
		}
		node = child
	}
}

// Match reports whether domain equals or is a subdomain of an inserted suffix.
func (t *DomainSuffixTrie) Match(domain string) bool {
	node := t
	for label, rest := lastLabel(domain); ; label, rest = lastLabel(rest) {
		child, ok := node.Children[label]
		if !ok {
			return false
		}
		if child.Included {
			return true
		}
		if rest == "" {
			return false
		}
		node = child
	}
}

// Keys returns the inserted suffixes.
func (t *DomainSuffixTrie) Keys() (keys []string) {
	for label, child := range t.Children {
		keys = child.keys(label, keys)
	}
	return
}

func (t *DomainSuffixTrie) keys(suffix string, keys []string) []string {
	if t.Included {
		keys = append(keys, suffix)
	}
	for label, child := range t.Children {
		keys = child.keys(label+"."+suffix, keys)
	}
	return keys
}

// lastLabel splits domain into its rightmost label and the remaining prefix.
func lastLabel(domain string) (label, rest string) {
	for i := len(domain) - 1; i >= 0; i-- {
		if domain[i] == '.' {
			return domain[i+1:], domain[:i]
		}
	}
	return domain, ""
}
