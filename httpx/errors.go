package httpx

import (
	"fmt"
	"net/http"

	"github.com/mbolis/encuestas-pae/log"
)

// Will log an error, and send an HTTP response with status 500 and default text
func LogInternalError(w http.ResponseWriter, code string, err error) {
	log.Errorf("%s: %s", code, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Will log a debug message, and send an HTTP response with status 404 and default text
func LogNotFound(w http.ResponseWriter, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
}

// Will log an error code at the given level, and send
// an HTTP response with status and default text
func LogStatus(w http.ResponseWriter, status int, level log.Level, code string) {
	log.Log(level, code)
	http.Error(w, http.StatusText(status), status)
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and formatted message
func LogStatusMsg(w http.ResponseWriter, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	http.Error(w, errMsg, status)
}

// Will log a validation failure at DEBUG level, and send an HTTP response
// with status 400 and the error text, which is meant for the user
func LogInvalid(w http.ResponseWriter, code string, err error) {
	LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, code, "%s", err)
}

// Will send data as a file download
func WriteAttachment(w http.ResponseWriter, filename, contentType string, data []byte) error {
	w.Header().Set("content-type", contentType)
	w.Header().Set("content-disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("content-length", fmt.Sprint(len(data)))
	_, err := w.Write(data)
	return err
}
