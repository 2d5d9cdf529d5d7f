package ports

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndLookup(t *testing.T) {
	r := NewRegistry()
	r.Record("c1", "hbase-site.master.port", "16000", true)

	value, ok := r.SharedPort("hbase-site.master.port")
	require.True(t, ok)
	assert.Equal(t, "16000", value)

	value, ok = r.ContainerPort("c1", "hbase-site.master.port")
	require.True(t, ok)
	assert.Equal(t, "16000", value)

	_, ok = r.ContainerPort("c2", "hbase-site.master.port")
	assert.False(t, ok)
}

func TestPerContainerOnly(t *testing.T) {
	r := NewRegistry()
	r.Record("c1", "hbase-site.rs.port", "16020", false)

	_, ok := r.SharedPort("hbase-site.rs.port")
	assert.False(t, ok)

	value, ok := r.ContainerPort("c1", "hbase-site.rs.port")
	require.True(t, ok)
	assert.Equal(t, "16020", value)
}

func TestSharedIsLastWriterWins(t *testing.T) {
	r := NewRegistry()
	r.Record("c1", "port", "1000", true)
	r.Record("c2", "port", "2000", true)

	value, _ := r.SharedPort("port")
	assert.Equal(t, "2000", value)

	// per-container views stay distinct
	v1, _ := r.ContainerPort("c1", "port")
	v2, _ := r.ContainerPort("c2", "port")
	assert.Equal(t, "1000", v1)
	assert.Equal(t, "2000", v2)
}

func TestReleaseContainer(t *testing.T) {
	r := NewRegistry()
	r.Record("c1", "a", "1", true)
	r.Record("c1", "b", "2", false)

	r.ReleaseContainer("c1")

	assert.Empty(t, r.ContainerPorts("c1"))
	_, ok := r.SharedPort("a")
	assert.False(t, ok)

	// releasing twice is harmless
	r.ReleaseContainer("c1")
}

func TestReleaseIsFirstRemoverWins(t *testing.T) {
	r := NewRegistry()
	r.Record("c1", "port", "1000", true)
	r.Record("c2", "port", "2000", true)

	// c1 completing removes the shared entry even though c2 wrote it last
	r.ReleaseContainer("c1")
	_, ok := r.SharedPort("port")
	assert.False(t, ok)

	// c2's own view is untouched
	value, _ := r.ContainerPort("c2", "port")
	assert.Equal(t, "2000", value)
}

func TestConcurrentRecord(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			containerID := fmt.Sprintf("c%d", n)
			r.Record(containerID, "port", fmt.Sprintf("%d", 1000+n), true)
			r.ContainerPorts(containerID)
			r.SharedPorts()
		}(i)
	}
	wg.Wait()

	_, ok := r.SharedPort("port")
	assert.True(t, ok)
}
