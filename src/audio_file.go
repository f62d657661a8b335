package cwkey

/*------------------------------------------------------------------
 *
 * Purpose:   	Write 16 bit mono PCM to a .WAV file.
 *
 * Description:	The header is written with zero lengths first and
 *		filled in by Close, once we know how much was written.
 *
 *---------------------------------------------------------------*/

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

type wavHeader struct {
	Riff            [4]byte /* "RIFF" */
	Filesize        int32   /* file length - 8 */
	Wave            [4]byte /* "WAVE" */
	Fmt             [4]byte /* "fmt " */
	Fmtsize         int32   /* 16. */
	Wformattag      int16   /* 1 for PCM. */
	Nchannels       int16   /* 1 for mono, 2 for stereo. */
	Nsamplespersec  int32   /* sampling freq, Hz. */
	Navgbytespersec int32   /* = nblockalign*nsamplespersec. */
	Nblockalign     int16   /* = wbitspersample/8 * nchannels. */
	Wbitspersample  int16   /* 16 or 8. */
	Data            [4]byte /* "data" */
	Datasize        int32   /* number of bytes following. */
}

const wavHeaderSize = 44

type AudioFile struct {
	f         io.WriteSeeker
	closer    io.Closer
	buf       *bufio.Writer
	header    wavHeader
	byteCount int64
}

// CreateAudioFile makes a new mono 16 bit .WAV file.
func CreateAudioFile(fname string, samplesPerSec int) (*AudioFile, error) {
	var f, err = os.Create(fname) //nolint:gosec // We expect to write to a user-supplied file from CLI
	if err != nil {
		return nil, fmt.Errorf("couldn't open %s for write: %w", fname, err)
	}

	var af, werr = NewAudioFile(f, samplesPerSec)
	if werr != nil {
		f.Close()
		return nil, werr
	}
	af.closer = f

	return af, nil
}

// NewAudioFile writes the header to w.  Close completes it.
func NewAudioFile(w io.WriteSeeker, samplesPerSec int) (*AudioFile, error) {
	var af = &AudioFile{f: w} //nolint:exhaustruct

	var h = &af.header
	copy(h.Riff[:], "RIFF")
	copy(h.Wave[:], "WAVE")
	copy(h.Fmt[:], "fmt ")
	h.Fmtsize = 16
	h.Wformattag = 1
	h.Nchannels = 1
	h.Nsamplespersec = int32(samplesPerSec) //nolint:gosec
	h.Wbitspersample = 16
	h.Nblockalign = h.Wbitspersample / 8 * h.Nchannels
	h.Navgbytespersec = int32(h.Nblockalign) * h.Nsamplespersec
	copy(h.Data[:], "data")

	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return nil, fmt.Errorf("couldn't write wav header: %w", err)
	}

	af.buf = bufio.NewWriter(w)

	return af, nil
}

func (af *AudioFile) PutSample(sam int16) error {
	var b = [2]byte{byte(sam), byte(uint16(sam) >> 8)} //nolint:gosec
	var _, err = af.buf.Write(b[:])
	af.byteCount += 2
	return err
}

// SampleCount is the number of samples written so far.
func (af *AudioFile) SampleCount() int64 {
	return af.byteCount / 2
}

/*------------------------------------------------------------------
 *
 * Name:        Close
 *
 * Purpose:     Fill in the lengths and close the file.
 *
 *----------------------------------------------------------------*/

func (af *AudioFile) Close() error {
	if err := af.buf.Flush(); err != nil {
		return err
	}

	af.header.Datasize = int32(af.byteCount)                     //nolint:gosec
	af.header.Filesize = int32(af.byteCount + wavHeaderSize - 8) //nolint:gosec

	if _, err := af.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := binary.Write(af.f, binary.LittleEndian, &af.header); err != nil {
		return err
	}

	if af.closer != nil {
		return af.closer.Close()
	}
	return nil
}
