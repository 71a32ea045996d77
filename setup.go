package mutagen

import (
	"fmt"
	"log"

	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// *****************************************************************************
// ************************ Manual Dictionary Loading **************************
// Two seed formats feed the manual dictionary: a directory of raw word files
// (one word per file), or a single AFL-style token file with one
// name="value" entry per line. Either way, loading happens once, at
// dispatcher construction; the manual dictionary never changes afterward.

func loadDictionary(dictPath string) (des []*DictionaryEntry) {
	stat, err := os.Stat(dictPath)
	if err != nil {
		log.Printf("Problem while reading dictionary path: %v.\n", err)
		return des
	}

	if stat.IsDir() {
		return loadDictionaryDir(dictPath)
	}

	content, err := ioutil.ReadFile(dictPath)
	if err != nil {
		log.Printf("Problem reading dictionary file: %v.\n", err)
		return des
	}
	des, err = parseDictionary(content)
	if err != nil {
		log.Printf("Problem parsing dictionary file: %v.\n", err)
	}

	dbgPr("Parsed %d extras for dictionary fuzzing.\n", len(des))
	return des
}

func loadDictionaryDir(dictPath string) (des []*DictionaryEntry) {
	fileInfos, err := ioutil.ReadDir(dictPath)
	if err != nil {
		log.Printf("Problem reading dictionary directory: %v.\n", err)
		return des
	}

	knownWords := make(map[string]struct{})
	for _, info := range fileInfos {
		path := filepath.Join(dictPath, info.Name())
		fileContent, err := ioutil.ReadFile(path)
		if err != nil {
			log.Printf("Problem reading a file for dict: %v.\n", err)
			continue
		}
		if len(fileContent) == 0 {
			continue
		}

		if _, ok := knownWords[string(fileContent)]; !ok {
			knownWords[string(fileContent)] = struct{}{}
			des = append(des, NewDictionaryEntry(Word(fileContent)))
		}
	}

	dbgPr("Parsed %d extras for dictionary fuzzing.\n", len(des))
	return des
}

// *****************************************************************************
// *************************** Token File Parsing ******************************

// parseDictionary reads AFL-style token lines:
//
//	# comment
//	name="value"
//	"bare value"
//	hinted="value"@12
//
// The value supports \\, \", and \xNN escapes. The optional @offset suffix
// becomes the entry's position hint. Duplicated words are folded.
func parseDictionary(content []byte) (des []*DictionaryEntry, err error) {
	knownWords := make(map[string]struct{})

	for i, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		de, err := parseDictionaryLine(line)
		if err != nil {
			return des, fmt.Errorf("line %d: %v", i+1, err)
		}

		if _, ok := knownWords[string(de.word)]; ok {
			continue
		}
		knownWords[string(de.word)] = struct{}{}
		des = append(des, de)
	}

	return des, nil
}

func parseDictionaryLine(line string) (*DictionaryEntry, error) {
	open := strings.IndexByte(line, '"')
	if open < 0 {
		return nil, fmt.Errorf("no quoted value in %q", line)
	}
	close := strings.LastIndexByte(line, '"')
	if close == open {
		return nil, fmt.Errorf("unterminated value in %q", line)
	}

	word, err := unescapeToken(line[open+1 : close])
	if err != nil {
		return nil, err
	}
	if len(word) == 0 {
		return nil, fmt.Errorf("empty value in %q", line)
	}

	hint := noPositionHint
	if rest := line[close+1:]; len(rest) > 0 {
		if rest[0] != '@' {
			return nil, fmt.Errorf("trailing garbage in %q", line)
		}
		hint, err = strconv.Atoi(rest[1:])
		if err != nil || hint < 0 {
			return nil, fmt.Errorf("bad position hint in %q", line)
		}
	}

	if hint == noPositionHint {
		return NewDictionaryEntry(word), nil
	}
	return NewDictionaryEntryWithHint(word, hint), nil
}

func unescapeToken(s string) (w Word, err error) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			w = append(w, c)
			continue
		}

		if i+1 >= len(s) {
			return nil, fmt.Errorf("dangling escape in %q", s)
		}
		i++
		switch s[i] {
		case '\\':
			w = append(w, '\\')
		case '"':
			w = append(w, '"')
		case 'x':
			if i+2 >= len(s) {
				return nil, fmt.Errorf("short hex escape in %q", s)
			}
			v, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err != nil {
				return nil, fmt.Errorf("bad hex escape in %q", s)
			}
			w = append(w, byte(v))
			i += 2
		default:
			return nil, fmt.Errorf("unknown escape \\%c in %q", s[i], s)
		}
	}
	return w, nil
}
