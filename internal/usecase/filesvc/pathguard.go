package filesvc

import (
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/yourname/devfiles/internal/models"
)

// resolvedPath путь к файлу под корнем и признак завершающего слэша в запросе.
type resolvedPath struct {
	name          string
	trailingSlash bool
}

// checkMethod пропускает только GET и HEAD.
func checkMethod(method string) error {
	if method == http.MethodGet || method == http.MethodHead {
		return nil
	}
	return fmt.Errorf("%s: %w", method, models.ErrMethodNotAllowed)
}

// resolvePath склеивает путь запроса с корнем по правилам POSIX и отсекает выход за корень.
func resolvePath(root, requestPath string) (resolvedPath, error) {
	requestPath = unixify(requestPath)
	name := path.Join(root, requestPath)

	if isOutRoot(name, root) {
		return resolvedPath{}, fmt.Errorf("%q escapes root: %w", requestPath, models.ErrForbidden)
	}

	return resolvedPath{
		name:          name,
		trailingSlash: strings.HasSuffix(requestPath, "/"),
	}, nil
}

func isOutRoot(name, root string) bool {
	if name == root || root == "/" {
		return false
	}
	return !strings.HasPrefix(name, root+"/")
}

// unixify приводит разделители к "/", чтобы "..\" не обходил проверку.
func unixify(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}
