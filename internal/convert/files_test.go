package convert

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestVOCDirToLabelStudio(t *testing.T) {
	inDir := t.TempDir()
	writeFile(t, inDir, "b.xml", sampleVOC)
	writeFile(t, inDir, "a.xml", sampleVOC)

	outPath := filepath.Join(t.TempDir(), "tasks.json")
	err := VOCDirToLabelStudio(inDir, outPath, DirOptions{Prefix: "/data/"})
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var tasks []struct {
		Data struct {
			Image string `json:"image"`
		} `json:"data"`
		Annotations []struct {
			Result []json.RawMessage `json:"result"`
		} `json:"annotations"`
	}
	require.NoError(t, json.Unmarshal(data, &tasks))
	require.Len(t, tasks, 2)
	assert.Equal(t, "/data/scene.jpg", tasks[0].Data.Image)
	require.Len(t, tasks[0].Annotations, 1)
	assert.Len(t, tasks[0].Annotations[0].Result, 2)
}

func TestLabelMeDirToLabelStudio(t *testing.T) {
	inDir := t.TempDir()
	writeFile(t, inDir, "scene.json", sampleLabelMe)

	outPath := filepath.Join(t.TempDir(), "tasks.json")
	err := LabelMeDirToLabelStudio(inDir, outPath, DirOptions{})
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var tasks []json.RawMessage
	require.NoError(t, json.Unmarshal(data, &tasks))
	assert.Len(t, tasks, 1)
}

func TestVOCDirToLabelStudio_MissingDir(t *testing.T) {
	err := VOCDirToLabelStudio(filepath.Join(t.TempDir(), "nope"), "out.json", DirOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestVOCDirToLabelStudio_EmptyDir(t *testing.T) {
	err := VOCDirToLabelStudio(t.TempDir(), "out.json", DirOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no *.xml files")
}

func TestLookup(t *testing.T) {
	for _, format := range Formats() {
		_, err := Lookup(format)
		assert.NoError(t, err, format)
	}

	_, err := Lookup("yolo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestFormats(t *testing.T) {
	assert.Equal(t, []string{"coco", "labelme", "labelstudio", "voc"}, Formats())
}
