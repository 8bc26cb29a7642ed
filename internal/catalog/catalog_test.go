package catalog

import (
	"testing"

	"github.com/chagen/clairvoyant/internal/model"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateCreatesThenReuses(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)

	id := model.MetricId{Group: "node01", Id: "temp"}
	info, err := c.GetOrCreate(id, model.Double, "Temperature", "Node inlet temperature")
	require.NoError(t, err)
	require.Equal(t, id, info.Id)
	require.Equal(t, "Temperature", info.Name)

	again, err := c.GetOrCreate(id, model.Double, "", "")
	require.NoError(t, err)
	require.Equal(t, info, again, "re-requesting with blank name/description must not clear existing metadata")
}

func TestGetOrCreateUpdatesNameAndDescription(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)

	id := model.MetricId{Group: "node01", Id: "temp"}
	_, err = c.GetOrCreate(id, model.Double, "Temp", "")
	require.NoError(t, err)

	updated, err := c.GetOrCreate(id, model.Double, "Temperature", "Inlet sensor")
	require.NoError(t, err)
	require.Equal(t, "Temperature", updated.Name)
	require.Equal(t, "Inlet sensor", updated.Description)

	fromGet, ok := c.Get(id)
	require.True(t, ok)
	require.Equal(t, updated, fromGet)
}

func TestGetOrCreateTypeMismatch(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)

	id := model.MetricId{Group: "node01", Id: "temp"}
	_, err = c.GetOrCreate(id, model.Double, "", "")
	require.NoError(t, err)

	_, err = c.GetOrCreate(id, model.Integer, "", "")
	require.Error(t, err)
	var storageErr *model.Error
	require.ErrorAs(t, err, &storageErr)
	require.Equal(t, model.TypeMismatch, storageErr.Kind)
}

func TestCatalogPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	require.NoError(t, err)

	id := model.MetricId{Group: "node01", Id: "temp"}
	_, err = c.GetOrCreate(id, model.Double, "Temperature", "")
	require.NoError(t, err)

	reopened, err := Open(dir)
	require.NoError(t, err)
	info, ok := reopened.Get(id)
	require.True(t, ok)
	require.Equal(t, "Temperature", info.Name)
}

func TestDeleteRemovesEntry(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)

	id := model.MetricId{Group: "node01", Id: "temp"}
	_, err = c.GetOrCreate(id, model.Double, "", "")
	require.NoError(t, err)

	require.NoError(t, c.Delete(id))
	_, ok := c.Get(id)
	require.False(t, ok)

	require.NoError(t, c.Delete(id), "deleting an already-absent id must be a no-op")
}

func TestListIsSortedByGroupThenId(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)

	ids := []model.MetricId{
		{Group: "b", Id: "z"},
		{Group: "a", Id: "y"},
		{Group: "a", Id: "x"},
	}
	for _, id := range ids {
		_, err := c.GetOrCreate(id, model.Integer, "", "")
		require.NoError(t, err)
	}

	list := c.List()
	require.Len(t, list, 3)
	require.Equal(t, model.MetricId{Group: "a", Id: "x"}, list[0].Id)
	require.Equal(t, model.MetricId{Group: "a", Id: "y"}, list[1].Id)
	require.Equal(t, model.MetricId{Group: "b", Id: "z"}, list[2].Id)
}
