package prefs

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/arloliu/go-gasera/logger"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*FileStore, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config", "prefs.yaml")
	s, err := Open(path, logger.NewNop())
	require.NoError(t, err)

	return s, path
}

func TestOpen_Missing(t *testing.T) {
	require := require.New(t)
	s, path := openTemp(t)

	require.Equal(path, s.Path())
	require.Empty(s.All())
	require.Equal(DefaultMeasurementDuration, s.GetInt(KeyMeasurementDuration, DefaultMeasurementDuration))
}

func TestOpen_Corrupt(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(os.WriteFile(path, []byte("{not: [yaml"), 0o600))

	s, err := Open(path, logger.NewNop())
	require.NoError(err)
	require.Empty(s.All())
}

func TestSetInt_Persists(t *testing.T) {
	require := require.New(t)
	s, path := openTemp(t)

	require.NoError(s.SetInt(KeyMeasurementDuration, 120))
	require.Equal(120, s.GetInt(KeyMeasurementDuration, 0))

	reopened, err := Open(path, logger.NewNop())
	require.NoError(err)
	require.Equal(120, reopened.GetInt(KeyMeasurementDuration, 0))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(err)
	require.Len(entries, 1, "no temp files left behind")
}

func TestGetInt_Conversions(t *testing.T) {
	require := require.New(t)
	s, err := Open("", logger.NewNop())
	require.NoError(err)

	require.NoError(s.Set("text", "42"))
	require.NoError(s.Set("float", 7.0))
	require.NoError(s.Set("bad", "abc"))

	require.Equal(42, s.GetInt("text", 0))
	require.Equal(7, s.GetInt("float", 0))
	require.Equal(-1, s.GetInt("bad", -1))
	require.Equal(-1, s.GetInt("missing", -1))
	require.Equal("abc", s.GetString("bad", ""))
	require.Equal("none", s.GetString("missing", "none"))
}

func TestSubscribe(t *testing.T) {
	require := require.New(t)
	s, path := openTemp(t)

	var got []int
	s.Subscribe(KeyMotorTimeout, IntHandler(func(v int) {
		// the change is persisted before subscribers run
		reopened, err := Open(path, logger.NewNop())
		require.NoError(err)
		require.Equal(v, reopened.GetInt(KeyMotorTimeout, 0))

		got = append(got, v)
	}))
	s.Subscribe(KeyMotorTimeout, func(string, any) { panic("subscriber bug") })
	s.Subscribe(KeyMotorTimeout, nil)

	require.NoError(s.SetInt(KeyMotorTimeout, 20))
	require.NoError(s.SetInt(KeyMeasurementDuration, 30))
	require.NoError(s.SetInt(KeyMotorTimeout, 25))

	require.Equal([]int{20, 25}, got)
}

func TestUpdateFromMap(t *testing.T) {
	require := require.New(t)
	s, _ := openTemp(t)

	var notified []string
	for _, key := range KnownKeys() {
		s.Subscribe(key, func(key string, _ any) { notified = append(notified, key) })
	}

	keys, err := s.UpdateFromMap(map[string]any{
		KeyMeasurementDuration: "300",
		KeyChartUpdateInterval: 2.0,
		"unknown":              1,
	})
	require.NoError(err)
	require.Equal([]string{KeyChartUpdateInterval, KeyMeasurementDuration}, keys)
	require.ElementsMatch(keys, notified)
	require.Equal(300, s.GetInt(KeyMeasurementDuration, 0))
	_, ok := s.Get("unknown")
	require.False(ok)

	_, err = s.UpdateFromMap(map[string]any{KeyMotorTimeout: "soon", KeyMeasurementDuration: 1})
	require.ErrorIs(err, ErrInvalidValue)
	require.Equal(300, s.GetInt(KeyMeasurementDuration, 0), "nothing stored on error")

	keys, err = s.UpdateFromMap(map[string]any{"unknown": 1})
	require.NoError(err)
	require.Empty(keys)
}

func TestSet_PersistFailureRollsBack(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(os.WriteFile(blocker, nil, 0o600))

	// the parent of the preferences file is a regular file
	s, err := Open(filepath.Join(blocker, "prefs.yaml"), logger.NewNop())
	require.NoError(err)

	called := false
	s.Subscribe(KeyMotorTimeout, func(string, any) { called = true })

	require.Error(s.SetInt(KeyMotorTimeout, 30))
	require.Equal(DefaultMotorTimeout, s.GetInt(KeyMotorTimeout, DefaultMotorTimeout))
	require.False(called)
}

func TestConcurrentAccess(t *testing.T) {
	require := require.New(t)
	s, _ := openTemp(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = s.SetInt(KeyChartUpdateInterval, i)
		}(i)
		go func() {
			defer wg.Done()
			_ = s.GetInt(KeyChartUpdateInterval, 0)
		}()
	}
	wg.Wait()

	v := s.GetInt(KeyChartUpdateInterval, -1)
	require.GreaterOrEqual(v, 0)
	require.Less(v, 20)
}

func TestToInt(t *testing.T) {
	tests := []struct {
		in   any
		want int
		ok   bool
	}{
		{5, 5, true},
		{int64(6), 6, true},
		{uint64(7), 7, true},
		{8.0, 8, true},
		{8.5, 0, false},
		{"9", 9, true},
		{"x", 0, false},
		{true, 0, false},
	}

	for _, tt := range tests {
		got, ok := ToInt(tt.in)
		require.Equal(t, tt.ok, ok, "%v", tt.in)
		if tt.ok {
			require.Equal(t, tt.want, got)
		}
	}
}
