package docx

import "errors"

// ErrNotDocument reports that a file is not a Word document.
var ErrNotDocument = errors.New("not a .docx document")
