package classifier

import (
	"github.com/hkogrunt/grunt/models"
	"github.com/hkogrunt/grunt/utils"
)

// CategoryExtensions is one row of the extension table.
type CategoryExtensions struct {
	Category   models.Category
	Extensions []string
}

// DefaultTable returns the built-in extension table in category order.
// Every extension appears under exactly one category.
func DefaultTable() []CategoryExtensions {
	return []CategoryExtensions{
		{models.Documents, []string{".pdf", ".doc", ".docx", ".txt", ".rtf", ".odt", ".md"}},
		{models.Spreadsheets, []string{".xls", ".xlsx", ".csv", ".ods"}},
		{models.Presentations, []string{".ppt", ".pptx", ".odp", ".key"}},
		{models.Images, []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".svg", ".ico", ".webp", ".tif", ".tiff", ".heic"}},
		{models.Videos, []string{".mp4", ".avi", ".mkv", ".mov", ".wmv", ".flv", ".webm"}},
		{models.Audio, []string{".mp3", ".wav", ".flac", ".aac", ".ogg", ".m4a"}},
		{models.Code, []string{".py", ".js", ".ts", ".html", ".css", ".json", ".xml", ".java", ".cpp", ".c", ".h", ".go", ".rb", ".php", ".cs"}},
		{models.Archives, []string{".zip", ".rar", ".7z", ".tar", ".gz", ".bz2", ".xz"}},
		{models.Executables, []string{".exe", ".msi", ".bat", ".sh", ".dll", ".so", ".app", ".apk", ".dmg"}},
		{models.Databases, []string{".db", ".sqlite", ".sqlite3", ".mdb", ".accdb", ".sql"}},
	}
}

// Conflict describes an extension configured under more than one category.
type Conflict struct {
	Extension string
	Winner    models.Category
	Loser     models.Category
}

// FindConflicts lists every extension that appears twice once normalized;
// the first row wins.
func FindConflicts(table []CategoryExtensions) []Conflict {
	owner := make(map[string]models.Category)
	var conflicts []Conflict
	for _, row := range table {
		for _, ext := range row.Extensions {
			ext = utils.NormalizeExtension(ext)
			if ext == "" {
				continue
			}
			if first, ok := owner[ext]; ok {
				if first != row.Category {
					conflicts = append(conflicts, Conflict{Extension: ext, Winner: first, Loser: row.Category})
				}
				continue
			}
			owner[ext] = row.Category
		}
	}
	return conflicts
}
