package webdav

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// handlePut implements PUT, staging the body in StagingDir
// before handing it to the tree and guaranteeing the staging file's
// removal on every exit path.
func (s *Server) handlePut(ctx context.Context, w http.ResponseWriter, r *http.Request) *Error {
	path, perr := s.resolvePath(r)
	if perr != nil {
		return perr
	}

	stagingPath, data, serr := s.stageBody(r.Body)
	defer func() {
		if stagingPath != "" {
			os.Remove(stagingPath)
		}
	}()
	if serr != nil {
		return serr
	}

	node, err := s.Tree.GetNodeForPath(ctx, path)
	exists := err == nil

	if exists {
		f, isFile := node.(File)
		var fi fileInfo
		if isFile {
			fi = gatherFileInfo(ctx, f)
		}

		redirected, perr := evaluatePreconditions(w, r, false, preconditionInput{
			Exists:       true,
			ETag:         fi.ETag,
			HasETag:      fi.HasETag,
			LastModified: fi.LastModified,
			HasLastMod:   fi.HasLastMod,
		})
		if redirected {
			return nil
		}
		if perr != nil {
			return perr
		}

		if !isFile {
			return NewError(KindConflict, "PUT is not allowed on non-files")
		}

		if vetoed := s.Events.Emit(EventBeforeWriteContent, path); vetoed {
			return nil
		}

		if werr := f.Put(ctx, data); werr != nil {
			return AsError(werr)
		}

		w.WriteHeader(http.StatusOK)
		return nil
	}

	node, cerr := s.createFile(ctx, path, data)
	if cerr != nil {
		return cerr
	}
	if node == nil {
		// A beforeBind/beforeCreateFile subscriber vetoed and has written
		// the response itself.
		return nil
	}

	w.WriteHeader(http.StatusCreated)
	return nil
}

// stageBody copies r's body into a uniquely-named file in StagingDir and
// returns both the staging path (for later cleanup) and the bytes read
// back from it, so a body-read failure never reaches Collection.CreateFile/
// File.Put with a half-written payload, while keeping the in-memory
// tree contract simple (File.Put takes []byte, not a path).
func (s *Server) stageBody(body io.ReadCloser) (stagingPath string, data []byte, err *Error) {
	defer body.Close()

	dir := s.StagingDir
	if dir == "" {
		dir = os.TempDir()
	}
	name := "jsdav-" + uuid.NewString()
	stagingPath = filepath.Join(dir, name)

	f, oerr := os.Create(stagingPath)
	if oerr != nil {
		return "", nil, NewErrorf(KindServerError, "cannot stage upload: %v", oerr)
	}

	if _, cerr := io.Copy(f, body); cerr != nil {
		f.Close()
		return stagingPath, nil, NewErrorf(KindServerError, "cannot stage upload: %v", cerr)
	}
	f.Close()

	data, rerr := os.ReadFile(stagingPath)
	if rerr != nil {
		return stagingPath, nil, NewErrorf(KindServerError, "cannot read staged upload: %v", rerr)
	}
	return stagingPath, data, nil
}
