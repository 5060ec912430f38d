package boundary

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDetect_InlineSkippedSimpleBody: an inline one-liner is ignored, and
// the following plain function's start column is the column of its opening
// brace, end column the column of the closing one.
func TestDetect_InlineSkippedSimpleBody(t *testing.T) {
	src := "package header\n" +
		"more header\n" +
		"\n" +
		"\n" +
		"inline int f() { return 0; }\n" +
		"\n" +
		"int g() {\n" +
		"\n" +
		"}\n"

	file, err := Detect(strings.NewReader(src))
	require.NoError(t, err)

	require.Len(t, file.Ranges, 1)
	got := file.Ranges[0]
	assert.Equal(t, "g", got.Name)
	assert.Equal(t, Range{Name: "g", StartLine: 7, StartCol: 8, EndLine: 9, EndCol: 0}, got)
}

// TestDetect_RoundTrip: an inline function, a multiline-signature function,
// a constructor with an initializer list, a destructor, and a plain
// function nested two namespaces deep. Exactly four ranges come out (the
// inline is skipped), in source order.
func TestDetect_RoundTrip(t *testing.T) {
	src := `namespace outer {
namespace inner {

inline int skip_me() { return 1; }

int multi_line_sig(
    int a,
    int b
) {
    return a + b;
}

class Foo {
public:
    Foo(int a, int b)
        : a_(a), b_(b) {
        do_stuff();
    }

    ~Foo() {
        cleanup();
    }
};

int nested_plain() {
    return 0;
}

}
}
`

	file, err := Detect(strings.NewReader(src))
	require.NoError(t, err)

	require.Len(t, file.Ranges, 4)

	names := make([]string, len(file.Ranges))
	for i, r := range file.Ranges {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"multi_line_sig", "Foo", "~Foo", "nested_plain"}, names)

	// Every detected range is reachable by its exact line-key.
	for _, r := range file.Ranges {
		got, ok := file.ByLines(r.StartLine, r.EndLine)
		require.True(t, ok)
		assert.Equal(t, r, got)
	}

	// The namespace-nested function is indexed under its fully qualified
	// name as well as the innermost-namespace-stripped alias.
	assert.Len(t, file.ByName("outer::inner::nested_plain"), 1)
	assert.Len(t, file.ByName("outer::nested_plain"), 1)
}

func TestDetect_MultiLineBlockComment(t *testing.T) {
	src := "/* a comment\n" +
		"   with a { brace inside it\n" +
		"*/\n" +
		"int g() {\n" +
		"    return 1;\n" +
		"}\n"

	file, err := Detect(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, file.Ranges, 1)
	assert.Equal(t, 4, file.Ranges[0].StartLine)
	assert.Equal(t, 6, file.Ranges[0].EndLine)
}

func TestReconcile_LineKeyPreferred(t *testing.T) {
	file := newFile()
	file.record(Range{Name: "a::b", StartLine: 10, StartCol: 8, EndLine: 20, EndCol: 0}, []string{"a"}, "b")

	r, ok := file.Reconcile("whatever", 10, 20)
	require.True(t, ok)
	assert.Equal(t, "a::b", r.Name)
}

func TestReconcile_NameFallbackRequiresUniqueCandidate(t *testing.T) {
	file := newFile()
	file.record(Range{Name: "a::b", StartLine: 1, StartCol: 0, EndLine: 3, EndCol: 0}, []string{"a"}, "b")

	// Line key disagrees (reported lines don't match exactly); name
	// fallback via the bare-name alias should still resolve uniquely.
	r, ok := file.Reconcile("b", 1, 4)
	require.True(t, ok)
	assert.Equal(t, "a::b", r.Name)

	// A second definition with the same bare name makes the fallback
	// ambiguous; reconciliation must now report a miss.
	file.record(Range{Name: "x::b", StartLine: 5, StartCol: 0, EndLine: 7, EndCol: 0}, []string{"x"}, "b")
	_, ok = file.Reconcile("b", 1, 4)
	assert.False(t, ok)
}
