package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/notargets/dgcore/dof"
	"github.com/notargets/dgcore/element"
)

// From here: https://su2code.github.io/docs_v7/Mesh-File/
type SU2ElementType uint8

const (
	ELType_LINE          SU2ElementType = 3
	ELType_Triangle      SU2ElementType = 5
	ELType_Quadrilateral SU2ElementType = 9
	ELType_Tetrahedral   SU2ElementType = 10
)

// su2Reader keeps the first error; every later read is a no-op.
type su2Reader struct {
	r    *bufio.Reader
	line int
	err  error
}

func (sr *su2Reader) getLine() (line string) {
	if sr.err != nil {
		return
	}
	line, sr.err = sr.r.ReadString('\n')
	if sr.err == io.EOF && len(line) != 0 {
		sr.err = nil
	} else if sr.err == io.EOF {
		sr.err = fmt.Errorf("early end of file after line %d", sr.line)
	}
	sr.line++
	return strings.TrimSpace(line)
}

func (sr *su2Reader) getLineNoComments() (line string) {
	for sr.err == nil {
		if line = sr.getLine(); !strings.HasPrefix(line, "%") && line != "" {
			return
		}
	}
	return
}

func (sr *su2Reader) getToken(name string) (token string) {
	line := sr.getLineNoComments()
	if sr.err != nil {
		return
	}
	ind := strings.Index(line, "=")
	if ind < 0 || strings.TrimSpace(line[:ind]) != name {
		sr.err = fmt.Errorf("line %d: expected %s=, got [%s]", sr.line, name, line)
		return
	}
	return strings.TrimSpace(line[ind+1:])
}

func (sr *su2Reader) readNumber(name string) (num int) {
	token := sr.getToken(name)
	if sr.err != nil {
		return
	}
	if _, err := fmt.Sscanf(token, "%d", &num); err != nil {
		sr.err = fmt.Errorf("line %d: unable to read number from token [%s]", sr.line, token)
	}
	return
}

func (sr *su2Reader) scan(format string, args ...any) {
	line := sr.getLineNoComments()
	if sr.err != nil {
		return
	}
	if n, err := fmt.Sscanf(line, format, args...); err != nil || n != len(args) {
		sr.err = fmt.Errorf("line %d: unable to parse [%s]", sr.line, line)
	}
}

// ReadSU2File reads a 2D triangle mesh in SU2 format. Marker names become
// boundary tags.
func ReadSU2File(filename string, order int) (m *Mesh, err error) {
	var file *os.File
	if file, err = os.Open(filename); err != nil {
		return
	}
	defer file.Close()
	return ReadSU2(file, order)
}

func ReadSU2(r io.Reader, order int) (m *Mesh, err error) {
	var (
		sr    = &su2Reader{r: bufio.NewReader(r)}
		nType int
	)
	if dim := sr.readNumber("NDIME"); sr.err == nil && dim != 2 {
		return nil, fmt.Errorf("%w: SU2 mesh of dimension %d", dof.ErrUnsupportedShape, dim)
	}
	K := sr.readNumber("NELEM")
	elements := make([][]int, K)
	for k := 0; k < K && sr.err == nil; k++ {
		elements[k] = make([]int, 3)
		sr.scan("%d %d %d %d", &nType, &elements[k][0], &elements[k][1], &elements[k][2])
		if sr.err == nil && SU2ElementType(nType) != ELType_Triangle {
			sr.err = fmt.Errorf("%w: SU2 element type %d", dof.ErrUnsupportedShape, nType)
		}
	}
	Nv := sr.readNumber("NPOIN")
	vertices := [][]float64{make([]float64, Nv), make([]float64, Nv)}
	for i := 0; i < Nv && sr.err == nil; i++ {
		sr.scan("%f %f", &vertices[0][i], &vertices[1][i])
	}
	// Boundary edges keyed by their sorted vertex coordinates
	bcEdges := make(map[string][]dof.BoundaryTag)
	NBCs := sr.readNumber("NMARK")
	for n := 0; n < NBCs && sr.err == nil; n++ {
		label := dof.BoundaryTag(sr.getToken("MARKER_TAG"))
		nEdges := sr.readNumber("MARKER_ELEMS")
		for i := 0; i < nEdges && sr.err == nil; i++ {
			var v1, v2 int
			sr.scan("%d %d %d", &nType, &v1, &v2)
			if sr.err != nil {
				break
			}
			if SU2ElementType(nType) != ELType_LINE {
				sr.err = fmt.Errorf("BCs should only contain line elements in 2D, got type %d", nType)
				break
			}
			if v1 < 0 || v2 < 0 || v1 >= Nv || v2 >= Nv {
				sr.err = fmt.Errorf("marker %s: vertex out of range", label)
				break
			}
			key := edgeKey([][]float64{{vertices[0][v1], vertices[1][v1]}, {vertices[0][v2], vertices[1][v2]}})
			bcEdges[key] = append(bcEdges[key], label)
		}
	}
	if sr.err != nil {
		return nil, sr.err
	}
	for k, ev := range elements {
		for _, v := range ev {
			if v < 0 || v >= Nv {
				return nil, fmt.Errorf("element %d: vertex %d out of range", k, v)
			}
		}
		// Orient counterclockwise
		var (
			x, y  = vertices[0], vertices[1]
			cross = (x[ev[1]]-x[ev[0]])*(y[ev[2]]-y[ev[0]]) - (x[ev[2]]-x[ev[0]])*(y[ev[1]]-y[ev[0]])
		)
		if cross < 0 {
			ev[1], ev[2] = ev[2], ev[1]
		}
	}
	var g *Group
	if g, err = MakeGroup(element.Triangle, order, elements, vertices); err != nil {
		return
	}
	return NewMesh(vertices, []*Group{g}, func(fv [][]float64) []dof.BoundaryTag {
		return bcEdges[edgeKey(fv)]
	})
}

func edgeKey(fv [][]float64) string {
	keys := make([]string, len(fv))
	for i, x := range fv {
		keys[i] = fmt.Sprint(x)
	}
	sort.Strings(keys)
	return strings.Join(keys, ";")
}
