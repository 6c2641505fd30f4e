package audiomoth

/*------------------------------------------------------------------
 *
 * Purpose:	Small helpers shared by every operation's entry point:
 *		open+validate an input WAV, and write a header+data+guano
 *		output file, deleting it again on any failure (spec §7's
 *		"partial outputs are junk").
 *
 *---------------------------------------------------------------*/

import (
	"os"
	"path/filepath"
)

// openAndValidate opens inputPath, reads and validates its header
// against op, reads any trailing GUANO chunk, and validates the
// filename. The caller owns the returned *os.File and must Close it.
func openAndValidate(inputPath string, op Operation) (*os.File, *Header, *Guano, *FilenameInfo, error) {
	var in, err = os.Open(inputPath) //nolint:gosec
	if err != nil {
		return nil, nil, nil, nil, wrapErr(ErrInputReadFailed, err, "opening %q", inputPath)
	}

	var stat os.FileInfo
	stat, err = in.Stat()
	if err != nil {
		in.Close()
		return nil, nil, nil, nil, wrapErr(ErrInputReadFailed, err, "stat %q", inputPath)
	}

	if stat.Size() == 0 {
		in.Close()
		return nil, nil, nil, nil, newErr(ErrFileSizeZero, "%q is empty", inputPath)
	}

	var headBuf = make([]byte, minInt64(stat.Size(), headerBufferSize))
	if n, err := in.ReadAt(headBuf, 0); err != nil && n < len(headBuf) {
		in.Close()
		return nil, nil, nil, nil, wrapErr(ErrInputReadFailed, err, "reading header of %q", inputPath)
	}

	var header *Header
	header, err = ReadHeader(headBuf, stat.Size())
	if err != nil {
		in.Close()
		return nil, nil, nil, nil, err
	}

	if int64(header.Size) > int64(len(headBuf)) {
		// Declared ICMT/IART capacity pushed the header past our first
		// read; re-read with the now-known exact size.
		headBuf = make([]byte, header.Size)
		if n, err := in.ReadAt(headBuf, 0); err != nil && n < len(headBuf) {
			in.Close()
			return nil, nil, nil, nil, wrapErr(ErrInputReadFailed, err, "re-reading header of %q", inputPath)
		}
		header, err = ReadHeader(headBuf, stat.Size())
		if err != nil {
			in.Close()
			return nil, nil, nil, nil, err
		}
	}

	var guano *Guano
	var guanoAvailable = stat.Size() - int64(header.Size) - int64(header.DataSize)
	if guanoAvailable > 0 {
		var guanoBuf = make([]byte, guanoAvailable)
		if n, err := in.ReadAt(guanoBuf, int64(header.Size)+int64(header.DataSize)); err != nil && n < len(guanoBuf) {
			in.Close()
			return nil, nil, nil, nil, wrapErr(ErrInputReadFailed, err, "reading trailing bytes of %q", inputPath)
		}
		guano, err = ReadGuano(guanoBuf, guanoAvailable)
		if err != nil {
			in.Close()
			return nil, nil, nil, nil, err
		}
	}

	var info *FilenameInfo
	info, err = ValidateFilename(op, filepath.Base(inputPath), header)
	if err != nil {
		in.Close()
		return nil, nil, nil, nil, err
	}

	return in, header, guano, info, nil
}

// writeOutputFile creates path, writes header, invokes writeData to
// stream the payload, then writes guano, deleting path on any failure.
func writeOutputFile(path string, header *Header, guano *Guano, writeData func(*os.File) error) (err error) {
	var out *os.File
	out, err = os.Create(path) //nolint:gosec
	if err != nil {
		return wrapErr(ErrOutputWriteFailed, err, "creating %q", path)
	}

	defer func() {
		closeErr := out.Close()
		if err != nil {
			os.Remove(path)
			return
		}
		if closeErr != nil {
			err = wrapErr(ErrOutputWriteFailed, closeErr, "closing %q", path)
			os.Remove(path)
		}
	}()

	if err = header.WriteHeader(out); err != nil {
		return err
	}

	if err = writeData(out); err != nil {
		return err
	}

	if err = WriteGuano(out, guano); err != nil {
		return err
	}

	return nil
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
