package util

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/nvr-ai/go-localize/common"
	"github.com/nvr-ai/go-localize/images"
	"github.com/pkg/errors"
)

// ErrMalformedLine is returned for box file lines that do not hold an image and four coordinates.
var ErrMalformedLine = errors.New("malformed box line")

// Proposal is a box read from a box file.
type Proposal struct {
	// Box is the box in 0-based pixel coordinates.
	Box common.Box
	// Line is the 1-based line number in the source file.
	Line int
}

// ImageProposals groups the proposals of one image.
type ImageProposals struct {
	// Image is the image identifier.
	Image string
	// Proposals are in file order.
	Proposals []Proposal
}

// ParseBoxFile reads lines of the form "<image> x1 y1 x2 y2" with 1-based
// coordinates. Blank lines and lines starting with '#' are skipped.
//
// Arguments:
//   - r: The box file contents.
//
// Returns:
//   - []ImageProposals: Proposals grouped by image, in order of first appearance.
//   - error: ErrMalformedLine for an unparsable line, or a read error.
func ParseBoxFile(r io.Reader) ([]ImageProposals, error) {
	var groups []ImageProposals
	index := map[string]int{}

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) != 5 {
			return nil, errors.Wrapf(ErrMalformedLine, "line %d: want 5 fields, got %d", line, len(fields))
		}

		var coords [4]float64
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, errors.Wrapf(ErrMalformedLine, "line %d: %v", line, err)
			}
			coords[i] = v - 1
		}

		box := common.NewBox(coords[0], coords[1], coords[2], coords[3])
		if !box.Valid() {
			return nil, errors.Wrapf(ErrMalformedLine, "line %d: empty box %s", line, box)
		}

		i, ok := index[fields[0]]
		if !ok {
			i = len(groups)
			index[fields[0]] = i
			groups = append(groups, ImageProposals{Image: fields[0]})
		}
		groups[i].Proposals = append(groups[i].Proposals, Proposal{Box: box, Line: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read box file")
	}
	return groups, nil
}

// LoadBoxFile opens and parses a box file.
func LoadBoxFile(path string) ([]ImageProposals, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	groups, err := ParseBoxFile(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return groups, nil
}

// ListImageIDs returns the identifiers of the image files in a directory.
//
// Arguments:
//   - dir: Directory path containing image files.
//
// Returns:
//   - []string: File names without extension, sorted.
//   - error: Error if the directory cannot be read.
func ListImageIDs(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		if _, ok := images.FormatOf(file.Name()); ok {
			ids = append(ids, strings.TrimSuffix(file.Name(), filepath.Ext(file.Name())))
		}
	}

	sort.Strings(ids)
	return ids, nil
}
