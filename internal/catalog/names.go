package catalog

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// DefaultNames is the built-in drug catalog, ordered. It covers the most
// common Brazilian over-the-counter and prescription names and can be
// replaced by a file-backed catalog via LoadNames.
var DefaultNames = []string{
	"dipirona",
	"paracetamol",
	"ibuprofeno",
	"omeprazol",
	"amoxicilina",
	"losartana",
	"nimesulida",
	"buscopan",
	"dorflex",
	"novalgina",
	"neosaldina",
	"benegrip",
	"benevon",
	"engov",
	"aspirina",
	"atenolol",
	"azitromicina",
	"captopril",
	"cetirizina",
	"cimegripe",
	"clonazepam",
	"diclofenaco",
	"dramin",
	"enalapril",
	"fluoxetina",
	"loratadina",
	"metformina",
	"prednisona",
	"ranitidina",
	"rivotril",
	"sertralina",
	"simvastatina",
	"tylenol",
	"vitamina c",
}

// LoadNames reads a catalog file with one canonical drug name per line.
// Blank lines and lines starting with '#' are skipped; order is preserved.
func LoadNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog file: %w", err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return names, nil
}
