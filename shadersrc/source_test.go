package shadersrc_test

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-theft-auto/render"
	"github.com/go-theft-auto/render/rendertest"
	"github.com/go-theft-auto/render/shadersrc"
)

const quadVert = `#version 430 core
layout (location = 0) in vec2 aPos;
out vec2 vUV;
void main() {
    vUV = aPos;
    gl_Position = vec4(aPos, 0.0, 1.0);
}
`

const quadFrag = `#version 430 core
in vec2 vUV;
out vec4 FragColor;
uniform vec2 windowSize;
void main() {
    FragColor = vec4(vUV, 0.0, 1.0);
}
`

const fillWGSL = `@group(0) @binding(0) var<storage, read_write> values: array<i32>;

@compute @workgroup_size(1)
fn fill(@builtin(global_invocation_id) id: vec3<u32>) {
    values[id.x] = 42;
}
`

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"quad.vert":   {Data: []byte(quadVert)},
		"quad.frag":   {Data: []byte(quadFrag)},
		"fill.wgsl":   {Data: []byte(fillWGSL)},
		"notes.txt":   {Data: []byte("not a shader")},
		"broken.frag": {Data: []byte("void main() {}")},
	}
}

func TestStageForPath(t *testing.T) {
	tests := map[string]render.Stage{
		"a.vert":         render.VertexStage,
		"dir/b.FRAG":     render.FragmentStage,
		"c.geom":         render.GeometryStage,
		"particles.comp": render.ComputeStage,
	}
	for name, want := range tests {
		got, err := shadersrc.StageForPath(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := shadersrc.StageForPath("shader.txt")
	require.ErrorIs(t, err, shadersrc.ErrUnknownExtension)
}

func TestLoadGLSLVerbatim(t *testing.T) {
	srcs, err := shadersrc.Load(testFS(), "quad.vert")
	require.NoError(t, err)
	require.Len(t, srcs, 1)
	assert.Equal(t, render.VertexStage, srcs[0].Stage)
	assert.Equal(t, quadVert, srcs[0].Code)
	assert.Equal(t, "quad.vert", srcs[0].Name)
}

func TestLoadErrors(t *testing.T) {
	_, err := shadersrc.Load(testFS(), "missing.vert")
	require.Error(t, err)

	_, err = shadersrc.Load(testFS(), "notes.txt")
	require.ErrorIs(t, err, shadersrc.ErrUnknownExtension)
}

func TestTranslateWGSLCompute(t *testing.T) {
	srcs, err := shadersrc.Load(testFS(), "fill.wgsl")
	require.NoError(t, err)
	require.Len(t, srcs, 1)

	src := srcs[0]
	assert.Equal(t, render.ComputeStage, src.Stage)
	assert.Equal(t, "fill.wgsl#fill", src.Name)
	assert.Contains(t, src.Code, "#version 430 core")
	assert.Contains(t, src.Code, "void main()")
}

func TestTranslateWGSLRejectsGarbage(t *testing.T) {
	_, err := shadersrc.TranslateWGSL("bad.wgsl", "fn {")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.wgsl")
}

func TestNewProgramFromFiles(t *testing.T) {
	dev := rendertest.NewDevice()

	prog, err := shadersrc.NewProgram(dev, testFS(), "quad.vert", "quad.frag")
	require.NoError(t, err)
	assert.NotEqual(t, render.UniformNotFound, prog.UniformLocation("windowSize"))

	// Only the program outlives loading.
	assert.Equal(t, 1, dev.Live())
	require.NoError(t, dev.Err())
}

func TestNewProgramReleasesShadersOnCompileError(t *testing.T) {
	dev := rendertest.NewDevice()

	_, err := shadersrc.NewProgram(dev, testFS(), "quad.vert", "broken.frag")
	var compileErr *render.CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Contains(t, err.Error(), "broken.frag")
	assert.Zero(t, dev.Live())
	require.NoError(t, dev.Err())
}

func TestNewComputeProgramFromWGSL(t *testing.T) {
	dev := rendertest.NewDevice()

	prog, err := shadersrc.NewComputeProgram(dev, testFS(), "fill.wgsl")
	require.NoError(t, err)
	assert.NotZero(t, prog.ID())
	assert.Equal(t, 1, dev.Live())

	_, err = shadersrc.NewComputeProgram(dev, testFS(), "quad.vert")
	require.Error(t, err)
}

func TestWatcherReportsWrites(t *testing.T) {
	dir := t.TempDir()
	w, err := shadersrc.NewWatcher(dir)
	require.NoError(t, err)
	defer w.Close()

	assert.Empty(t, w.Changed())

	path := filepath.Join(dir, "quad.frag")
	require.NoError(t, os.WriteFile(path, []byte(quadFrag), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	var changed []string
	require.Eventually(t, func() bool {
		changed = append(changed, w.Changed()...)
		return len(changed) > 0
	}, 2*time.Second, 10*time.Millisecond)

	for _, name := range changed {
		assert.Equal(t, path, name)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quad.frag")
	require.NoError(t, os.WriteFile(path, []byte(quadFrag), 0o644))

	srcs, err := shadersrc.LoadFile(path)
	require.NoError(t, err)
	require.Len(t, srcs, 1)
	assert.Equal(t, render.FragmentStage, srcs[0].Stage)
}
