package prediction

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// TreeExporter writes a visual representation of one tree and returns a
// handle to it.
type TreeExporter interface {
	Export(tree *Tree, columns []string) (string, error)
}

// DOTFile exports trees in Graphviz DOT format to a fixed path.
type DOTFile struct {
	Path       string
	ClassNames [2]string
}

func NewDOTFile(path string) *DOTFile {
	return &DOTFile{Path: path, ClassNames: [2]string{"low", "high"}}
}

func (d *DOTFile) Export(tree *Tree, columns []string) (string, error) {
	if tree == nil || tree.root == nil {
		return "", fmt.Errorf("no tree to export")
	}

	f, err := os.Create(d.Path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", d.Path, err)
	}
	if err := writeDOT(f, tree, columns, d.ClassNames); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", d.Path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", d.Path, err)
	}
	return d.Path, nil
}

var classColors = [2][3]int{
	{0xe5, 0x81, 0x39},
	{0x39, 0x9d, 0xe5},
}

func writeDOT(w io.Writer, tree *Tree, columns []string, classNames [2]string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph Tree {")
	fmt.Fprintln(bw, `node [shape=box, style="filled, rounded", color="black", fontname="helvetica"] ;`)
	fmt.Fprintln(bw, "edge [fontname=\"helvetica\"] ;")

	next := 0
	var walk func(n *treeNode, parent int)
	walk = func(n *treeNode, parent int) {
		id := next
		next++
		fmt.Fprintf(bw, "%d [label=\"%s\", fillcolor=\"%s\"] ;\n", id, nodeLabel(n, columns, classNames), fillColor(n))

		switch {
		case parent < 0:
		case parent == 0 && id == 1:
			fmt.Fprintf(bw, "%d -> %d [labeldistance=2.5, labelangle=45, headlabel=\"True\"] ;\n", parent, id)
		case parent == 0:
			fmt.Fprintf(bw, "%d -> %d [labeldistance=2.5, labelangle=-45, headlabel=\"False\"] ;\n", parent, id)
		default:
			fmt.Fprintf(bw, "%d -> %d ;\n", parent, id)
		}

		if !n.leaf() {
			walk(n.left, id)
			walk(n.right, id)
		}
	}
	walk(tree.root, -1)

	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

func nodeLabel(n *treeNode, columns []string, classNames [2]string) string {
	var sb strings.Builder
	if !n.leaf() {
		name := fmt.Sprintf("x[%d]", n.feature)
		if n.feature < len(columns) {
			name = columns[n.feature]
		}
		fmt.Fprintf(&sb, "%s <= %.2f\\n", name, n.threshold)
	}
	fmt.Fprintf(&sb, "gini = %.2f\\nsamples = %d\\nvalue = [%.2f, %.2f]\\nclass = %s",
		n.impurity, n.samples, n.value[0], n.value[1], classNames[majority(n)])
	return sb.String()
}

func majority(n *treeNode) int {
	if n.value[1] > n.value[0] {
		return 1
	}
	return 0
}

// fillColor blends the majority class color with white by node purity.
func fillColor(n *treeNode) string {
	total := n.value[0] + n.value[1]
	if total == 0 {
		return "#ffffff"
	}
	c := majority(n)
	hi, lo := n.value[c]/total, n.value[1-c]/total
	alpha := 0.0
	if lo < 1 {
		alpha = (hi - lo) / (1 - lo)
	}

	rgb := classColors[c]
	var out [3]int
	for i := range rgb {
		out[i] = int(alpha*float64(rgb[i]) + (1-alpha)*255 + 0.5)
	}
	return fmt.Sprintf("#%02x%02x%02x", out[0], out[1], out[2])
}
