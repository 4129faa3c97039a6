package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tg-clip-bot/internal/domain"
)

// Имена файлов состояния повторяют плоскую раскладку на диске:
// по строке на запись, счётчик одним числом, задачи списком JSON.
const (
	allowedUsersFile = "allowed_users.txt"
	postedIDsFile    = "posted_ids.txt"
	postedURLsFile   = "posted_urls.txt"
	counterFile      = "post_counter.txt"
	tasksFile        = "scheduled.json"
)

// Files хранит всё состояние бота в плоских файлах одной директории.
// Перезаписи выполняются через временный файл и rename, чтобы падение
// посреди записи не оставило усечённое состояние.
type Files struct {
	dir string
}

// NewFiles создаёт хранилище, при необходимости создавая директорию.
func NewFiles(dir string) (*Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("создание директории состояния: %w", err)
	}
	return &Files{dir: dir}, nil
}

func (f *Files) path(name string) string { return filepath.Join(f.dir, name) }

func (f *Files) readLines(name string) ([]string, error) {
	data, err := os.ReadFile(f.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("чтение %s: %w", name, err)
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		lines = append(lines, trimmed)
	}
	return lines, nil
}

func (f *Files) appendLine(name, line string) error {
	file, err := os.OpenFile(f.path(name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("открытие %s: %w", name, err)
	}
	defer file.Close()
	if _, err := file.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("дозапись %s: %w", name, err)
	}
	return file.Sync()
}

func (f *Files) rewrite(name string, data []byte) error {
	tmp, err := os.CreateTemp(f.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("временный файл для %s: %w", name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("запись %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("синхронизация %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("закрытие %s: %w", name, err)
	}
	if err := os.Rename(tmpName, f.path(name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("замена %s: %w", name, err)
	}
	return nil
}

func (f *Files) rewriteLines(name string, lines []string) error {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return f.rewrite(name, []byte(b.String()))
}

// LoadMembers возвращает сохранённые ID участников списка доступа.
func (f *Files) LoadMembers() ([]int64, error) {
	lines, err := f.readLines(allowedUsersFile)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for _, line := range lines {
		id, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// AppendMember дописывает ID в конец списка доступа.
func (f *Files) AppendMember(id int64) error {
	return f.appendLine(allowedUsersFile, strconv.FormatInt(id, 10))
}

// RewriteMembers переписывает список доступа целиком (после удаления).
func (f *Files) RewriteMembers(ids []int64) error {
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, strconv.FormatInt(id, 10))
	}
	return f.rewriteLines(allowedUsersFile, lines)
}

// LoadPostedIDs возвращает журнал опубликованных media ID.
func (f *Files) LoadPostedIDs() ([]string, error) { return f.readLines(postedIDsFile) }

// AppendPostedID дописывает media ID в журнал.
func (f *Files) AppendPostedID(id string) error { return f.appendLine(postedIDsFile, id) }

// LoadPostedKeys возвращает журнал канонических ключей.
func (f *Files) LoadPostedKeys() ([]string, error) { return f.readLines(postedURLsFile) }

// AppendPostedKey дописывает канонический ключ в журнал.
func (f *Files) AppendPostedKey(key string) error { return f.appendLine(postedURLsFile, key) }

// LoadCounter возвращает счётчик публикаций (0, если файла нет).
func (f *Files) LoadCounter() (int64, error) {
	data, err := os.ReadFile(f.path(counterFile))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("чтение счётчика: %w", err)
	}
	value, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("разбор счётчика: %w", err)
	}
	return value, nil
}

// SaveCounter перезаписывает счётчик публикаций.
func (f *Files) SaveCounter(value int64) error {
	return f.rewrite(counterFile, []byte(strconv.FormatInt(value, 10)+"\n"))
}

// LoadTasks возвращает отложенные задачи.
func (f *Files) LoadTasks() ([]domain.ScheduledTask, error) {
	data, err := os.ReadFile(f.path(tasksFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("чтение задач: %w", err)
	}
	var tasks []domain.ScheduledTask
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("разбор задач: %w", err)
	}
	return tasks, nil
}

// SaveTasks переписывает список отложенных задач целиком.
func (f *Files) SaveTasks(tasks []domain.ScheduledTask) error {
	if tasks == nil {
		tasks = []domain.ScheduledTask{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("сериализация задач: %w", err)
	}
	return f.rewrite(tasksFile, data)
}
