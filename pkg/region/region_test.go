package region

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestResolve_PrefersProfileConfigOverEnvironment(t *testing.T) {
	src := Sources{Profile: "work", ConfigRegion: "eu-west-1", CredentialsRegion: "ap-south-1"}
	env := envMap(map[string]string{"AWS_REGION": "us-west-2", "AWS_DEFAULT_REGION": "ca-central-1"})

	require.Equal(t, "eu-west-1", Resolve(src, env))
}

func TestResolve_FallsBackToCredentialsFile(t *testing.T) {
	src := Sources{Profile: "work", CredentialsRegion: "ap-south-1"}
	env := envMap(map[string]string{"AWS_REGION": "us-west-2"})

	require.Equal(t, "ap-south-1", Resolve(src, env))
}

func TestResolve_UsesEnvironmentOnlyWhenProfileHasNone(t *testing.T) {
	require.Equal(t, "us-west-2", Resolve(Sources{}, envMap(map[string]string{
		"AWS_REGION":         "us-west-2",
		"AWS_DEFAULT_REGION": "ca-central-1",
	})))
	require.Equal(t, "ca-central-1", Resolve(Sources{}, envMap(map[string]string{
		"AWS_REGION":         "  ",
		"AWS_DEFAULT_REGION": "ca-central-1",
	})))
}

func TestResolve_DefaultsToUSEast1(t *testing.T) {
	require.Equal(t, "us-east-1", Resolve(Sources{}, envMap(nil)))
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadSources_ReadsFilesIndependently(t *testing.T) {
	dir := t.TempDir()
	files := Files{
		Config: writeFile(t, dir, "config", "[default]\nregion = us-east-2\n\n[profile work]\nregion = eu-west-1\n"),
		Credentials: writeFile(t, dir, "credentials",
			"[work]\naws_access_key_id = AKIDEXAMPLE\naws_secret_access_key = secret\nregion = ap-south-1\n"),
	}

	src, err := LoadSources(context.Background(), "work", files)
	require.NoError(t, err)
	require.Equal(t, "work", src.Profile)
	require.Equal(t, "eu-west-1", src.ConfigRegion)
	require.Equal(t, "ap-south-1", src.CredentialsRegion)

	src, err = LoadSources(context.Background(), "", files)
	require.NoError(t, err)
	require.Equal(t, "default", src.Profile)
	require.Equal(t, "us-east-2", src.ConfigRegion)
	require.Empty(t, src.CredentialsRegion)
}

func TestLoadSources_MissingProfileAndFilesAreEmpty(t *testing.T) {
	dir := t.TempDir()
	files := Files{
		Config:      writeFile(t, dir, "config", "[default]\nregion = us-east-2\n"),
		Credentials: filepath.Join(dir, "does-not-exist"),
	}

	src, err := LoadSources(context.Background(), "missing", files)
	require.NoError(t, err)
	require.Empty(t, src.ConfigRegion)
	require.Empty(t, src.CredentialsRegion)
	require.Equal(t, "us-east-1", Resolve(src, envMap(nil)))
}
