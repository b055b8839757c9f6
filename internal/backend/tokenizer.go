package backend

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	tokCLS = "[CLS]"
	tokSEP = "[SEP]"
	tokPAD = "[PAD]"
	tokUNK = "[UNK]"

	maxWordChars = 100
)

// wordPiece is a BERT-style uncased WordPiece tokenizer.
type wordPiece struct {
	vocab     map[string]int64
	lowercase bool
	cls, sep  int64
	pad, unk  int64
}

// encodedBatch holds right-padded token ids for a batch.
type encodedBatch struct {
	IDs     [][]int64
	Mask    [][]int64
	TypeIDs [][]int64
	SeqLen  int
}

func loadWordPiece(path string, lowercase bool) (*wordPiece, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vocab := make(map[string]int64)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var id int64
	for sc.Scan() {
		tok := strings.TrimRight(sc.Text(), "\r")
		if _, dup := vocab[tok]; !dup {
			vocab[tok] = id
		}
		id++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read vocab: %w", err)
	}
	return newWordPiece(vocab, lowercase)
}

func newWordPiece(vocab map[string]int64, lowercase bool) (*wordPiece, error) {
	wp := &wordPiece{vocab: vocab, lowercase: lowercase}
	for _, s := range []struct {
		tok string
		dst *int64
	}{{tokCLS, &wp.cls}, {tokSEP, &wp.sep}, {tokPAD, &wp.pad}, {tokUNK, &wp.unk}} {
		id, ok := vocab[s.tok]
		if !ok {
			return nil, fmt.Errorf("vocab missing special token %s", s.tok)
		}
		*s.dst = id
	}
	return wp, nil
}

// tokenize returns wordpiece tokens for text without special tokens.
func (wp *wordPiece) tokenize(text string) []string {
	var out []string
	for _, w := range wp.basicTokens(text) {
		out = append(out, wp.wordPieces(w)...)
	}
	return out
}

// encode produces [CLS] tokens [SEP], truncated to maxLen ids.
func (wp *wordPiece) encode(text string, maxLen int) []int64 {
	if maxLen < 2 {
		maxLen = 2
	}
	toks := wp.tokenize(text)
	if len(toks) > maxLen-2 {
		toks = toks[:maxLen-2]
	}
	ids := make([]int64, 0, len(toks)+2)
	ids = append(ids, wp.cls)
	for _, t := range toks {
		ids = append(ids, wp.vocab[t])
	}
	return append(ids, wp.sep)
}

// encodeBatch encodes texts and right-pads them to the longest sequence.
func (wp *wordPiece) encodeBatch(texts []string, maxLen int) encodedBatch {
	seqs := make([][]int64, len(texts))
	longest := 0
	for i, t := range texts {
		seqs[i] = wp.encode(t, maxLen)
		if len(seqs[i]) > longest {
			longest = len(seqs[i])
		}
	}
	eb := encodedBatch{SeqLen: longest}
	for _, s := range seqs {
		ids := make([]int64, longest)
		mask := make([]int64, longest)
		for j := range ids {
			if j < len(s) {
				ids[j] = s[j]
				mask[j] = 1
			} else {
				ids[j] = wp.pad
			}
		}
		eb.IDs = append(eb.IDs, ids)
		eb.Mask = append(eb.Mask, mask)
		eb.TypeIDs = append(eb.TypeIDs, make([]int64, longest))
	}
	return eb
}

// basicTokens cleans text, isolates CJK characters and punctuation, and splits
// on whitespace.
func (wp *wordPiece) basicTokens(text string) []string {
	if wp.lowercase {
		text = stripAccents(strings.ToLower(text))
	}
	var out []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			out = append(out, string(cur))
			cur = cur[:0]
		}
	}
	for _, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar || (unicode.IsControl(r) && !unicode.IsSpace(r)):
		case unicode.IsSpace(r):
			flush()
		case isCJK(r) || isPunct(r):
			flush()
			out = append(out, string(r))
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return out
}

// wordPieces splits one word greedily into the longest vocab entries,
// continuation pieces prefixed with ##.
func (wp *wordPiece) wordPieces(word string) []string {
	runes := []rune(word)
	if len(runes) > maxWordChars {
		return []string{tokUNK}
	}
	var out []string
	for start := 0; start < len(runes); {
		end := len(runes)
		found := ""
		for end > start {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if _, ok := wp.vocab[sub]; ok {
				found = sub
				break
			}
			end--
		}
		if found == "" {
			return []string{tokUNK}
		}
		out = append(out, found)
		start = end
	}
	return out
}

func stripAccents(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0x2A700 && r <= 0x2B73F) ||
		(r >= 0x2B740 && r <= 0x2B81F) ||
		(r >= 0x2B820 && r <= 0x2CEAF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x2F800 && r <= 0x2FA1F)
}
