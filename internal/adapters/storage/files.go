package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/alejandrodnm/autotrade/internal/domain"
	"github.com/alejandrodnm/autotrade/internal/ports"
)

var (
	_ ports.SessionStore   = (*CookieFile)(nil)
	_ ports.ProcessedStore = (*ProcessedFile)(nil)
)

// CookieFile guarda las cookies de sesión como JSON. Se sobreescribe completo
// en cada guardado (normalmente solo al apagar).
type CookieFile struct {
	path string
}

// NewCookieFile crea el store en la ruta dada. El archivo no tiene por qué existir.
func NewCookieFile(path string) *CookieFile { return &CookieFile{path: path} }

// LoadCookies devuelve nil sin error si el archivo no existe.
func (f *CookieFile) LoadCookies() ([]domain.SessionCookie, error) {
	var cookies []domain.SessionCookie
	ok, err := readJSON(f.path, &cookies)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadCookies: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return cookies, nil
}

// SaveCookies persiste las cookies con permisos 0600.
func (f *CookieFile) SaveCookies(cookies []domain.SessionCookie) error {
	if cookies == nil {
		cookies = []domain.SessionCookie{}
	}
	if err := writeJSON(f.path, cookies); err != nil {
		return fmt.Errorf("storage.SaveCookies: %w", err)
	}
	return nil
}

// ProcessedFile guarda el set de trades procesados como un array JSON.
type ProcessedFile struct {
	path string
}

// NewProcessedFile crea el store en la ruta dada.
func NewProcessedFile(path string) *ProcessedFile { return &ProcessedFile{path: path} }

// Load devuelve un set vacío si el archivo no existe todavía.
func (f *ProcessedFile) Load() (*domain.ProcessedSet, error) {
	var ids []string
	if _, err := readJSON(f.path, &ids); err != nil {
		return domain.NewProcessedSet(nil), fmt.Errorf("storage.LoadProcessed: %w", err)
	}
	return domain.NewProcessedSet(ids), nil
}

// Save reescribe el archivo (temp + rename) y marca el set como limpio.
func (f *ProcessedFile) Save(set *domain.ProcessedSet) error {
	if err := writeJSON(f.path, set.IDs()); err != nil {
		return fmt.Errorf("storage.SaveProcessed: %w", err)
	}
	set.MarkClean()
	return nil
}

// readJSON decodifica path en out. ok=false si el archivo no existe.
func readJSON(path string, out any) (ok bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

// writeJSON escribe a un temporal en el mismo directorio y renombra, así un
// crash a mitad nunca deja el archivo truncado.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
