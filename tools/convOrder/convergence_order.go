package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/notargets/dgcore/utils"
)

var (
	csvFile string
)

// Reads the convergence studies written by "dgcore wave --eoc --csv" and
// prints the estimated order of each.
func main() {
	csvFilePtr := flag.String("csvFile", csvFile, "file containing entries of a convergence study")
	flag.Parse()
	csvFile = *csvFilePtr
	if len(csvFile) == 0 {
		flag.Usage()
		os.Exit(1)
	}
	fmt.Printf("Input file: %v\n", csvFile)
	f, err := os.Open(csvFile)
	if err != nil {
		panic(err)
	}
	defer f.Close()
	studies, err := readCSV(bufio.NewReader(f))
	if err != nil {
		panic(err)
	}
	keys := make([]string, 0, len(studies))
	for k := range studies {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Println(studies[k])
	}
}

// readCSV groups records of title, order, h, error by title and order.
func readCSV(r io.Reader) (studies map[string]*utils.EOCRecorder, err error) {
	var records [][]string
	studies = make(map[string]*utils.EOCRecorder)
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4
	if records, err = cr.ReadAll(); err != nil {
		return
	}
	for i, rec := range records {
		var (
			title, ntxt = rec[0], rec[1]
			n           int
			h, e        float64
		)
		if n, err = strconv.Atoi(ntxt); err != nil {
			return nil, fmt.Errorf("line %d: order: %w", i+1, err)
		}
		if h, err = strconv.ParseFloat(rec[2], 64); err != nil {
			return nil, fmt.Errorf("line %d: h: %w", i+1, err)
		}
		if e, err = strconv.ParseFloat(rec[3], 64); err != nil {
			return nil, fmt.Errorf("line %d: error: %w", i+1, err)
		}
		combTitle := fmt.Sprintf("%s, Order = %d", title, n)
		cs, ok := studies[combTitle]
		if !ok {
			cs = utils.NewEOCRecorder(combTitle)
			studies[combTitle] = cs
		}
		cs.AddDataPoint(h, e)
	}
	return
}
