package cwkey

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockGPIODLine is a test double for gpiodOutputLine that records calls
// without requiring GPIO hardware or the gpio-sim kernel module.
type mockGPIODLine struct {
	values []int
	closed bool
}

func (m *mockGPIODLine) SetValue(v int) error {
	m.values = append(m.values, v)
	return nil
}

func (m *mockGPIODLine) Close() error {
	m.closed = true
	return nil
}

type gpiodRequest struct {
	chip   string
	offset int
	invert bool
}

func setupGPIOD(t *testing.T) (*mockGPIODLine, *gpiodRequest) {
	t.Helper()

	var mock = new(mockGPIODLine)
	var req = new(gpiodRequest)

	var saved = requestGPIODLine
	requestGPIODLine = func(chip string, offset int, invert bool) (gpiodOutputLine, error) {
		*req = gpiodRequest{chip: chip, offset: offset, invert: invert}
		return mock, nil
	}
	t.Cleanup(func() { requestGPIODLine = saved })

	return mock, req
}

// mockSerialPort records the modem control lines.
type mockSerialPort struct {
	rts, dtr []bool
	closes   int
}

func (m *mockSerialPort) SetRTS(v bool) error {
	m.rts = append(m.rts, v)
	return nil
}

func (m *mockSerialPort) SetDTR(v bool) error {
	m.dtr = append(m.dtr, v)
	return nil
}

func (m *mockSerialPort) Close() error {
	m.closes++
	return nil
}

func setupSerial(t *testing.T) (*mockSerialPort, *int) {
	t.Helper()

	var mock = new(mockSerialPort)
	var opens = new(int)

	var saved = openSerialPort
	openSerialPort = func(string) (serialPort, error) {
		*opens++
		return mock, nil
	}
	t.Cleanup(func() { openSerialPort = saved })

	return mock, opens
}

func TestOpenLine_None(t *testing.T) {
	for _, m := range []LineMethod{"", LineNone, "NONE"} {
		var line, err = OpenLine("ptt", LineConfig{Method: m}) //nolint:exhaustruct
		require.NoError(t, err)
		assert.IsType(t, NullLine{}, line)
		assert.NoError(t, line.Set(true))
	}
}

func TestOpenLine_UnknownMethod(t *testing.T) {
	var _, err = OpenLine("ptt", LineConfig{Method: "lpt"}) //nolint:exhaustruct
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestOpenLine_GPIOD(t *testing.T) {
	var mock, req = setupGPIOD(t)

	var line, err = OpenLine("key", LineConfig{Method: LineGPIOD, Device: "gpiochip1", Line: 17}) //nolint:exhaustruct
	require.NoError(t, err)

	assert.Equal(t, gpiodRequest{chip: "gpiochip1", offset: 17, invert: false}, *req)
	assert.Equal(t, []int{0}, mock.values, "initial state off")

	require.NoError(t, line.Set(true))
	require.NoError(t, line.Set(false))
	assert.Equal(t, []int{0, 1, 0}, mock.values)

	require.NoError(t, line.Close())
	assert.True(t, mock.closed)
}

// Inversion is done by the kernel with an active low request, so
// the values we write are the logical ones.
func TestOpenLine_GPIODInvert(t *testing.T) {
	var mock, req = setupGPIOD(t)

	var line, err = OpenLine("ptt", LineConfig{Method: LineGPIOD, Line: 4, Invert: true}) //nolint:exhaustruct
	require.NoError(t, err)

	assert.Equal(t, "gpiochip0", req.chip)
	assert.True(t, req.invert)

	require.NoError(t, line.Set(true))
	assert.Equal(t, []int{0, 1}, mock.values)
}

func TestOpenLine_GPIODBadOffset(t *testing.T) {
	setupGPIOD(t)

	var _, err = OpenLine("ptt", LineConfig{Method: LineGPIOD, Line: -1}) //nolint:exhaustruct
	assert.ErrorIs(t, err, ErrBadLine)
}

func TestOpenLine_SerialRTS(t *testing.T) {
	var mock, _ = setupSerial(t)

	var line, err = OpenLine("ptt", LineConfig{Method: LineSerial, Device: "/dev/ttyUSB0"}) //nolint:exhaustruct
	require.NoError(t, err)

	require.NoError(t, line.Set(true))
	assert.Equal(t, []bool{false, true}, mock.rts)
	assert.Empty(t, mock.dtr)

	require.NoError(t, line.Close())
	assert.Equal(t, 1, mock.closes)
}

func TestOpenLine_SerialDTRInverted(t *testing.T) {
	var mock, _ = setupSerial(t)

	var line, err = OpenLine("key", LineConfig{Method: LineSerial, Device: "/dev/ttyUSB0", Signal: "DTR", Invert: true}) //nolint:exhaustruct
	require.NoError(t, err)

	require.NoError(t, line.Set(true))
	require.NoError(t, line.Set(false))
	assert.Equal(t, []bool{true, false, true}, mock.dtr)
	assert.Empty(t, mock.rts)
}

func TestOpenLine_SerialBadSignal(t *testing.T) {
	setupSerial(t)

	var _, err = OpenLine("key", LineConfig{Method: LineSerial, Device: "/dev/ttyS0", Signal: "cts"}) //nolint:exhaustruct
	assert.Error(t, err)
}

func TestOpenLines_SharedSerialPort(t *testing.T) {
	var mock, opens = setupSerial(t)

	var key, ptt, err = OpenLines(
		LineConfig{Method: LineSerial, Device: "/dev/ttyUSB0", Signal: "dtr"}, //nolint:exhaustruct
		LineConfig{Method: LineSerial, Device: "/dev/ttyUSB0", Signal: "rts"}, //nolint:exhaustruct
	)
	require.NoError(t, err)
	assert.Equal(t, 1, *opens)

	require.NoError(t, ptt.Set(true))
	require.NoError(t, key.Set(true))
	assert.Equal(t, []bool{false, true}, mock.dtr)
	assert.Equal(t, []bool{false, true}, mock.rts)

	require.NoError(t, key.Close())
	assert.Equal(t, 0, mock.closes, "port still in use by ptt")
	require.NoError(t, ptt.Close())
	assert.Equal(t, 1, mock.closes)
}

func TestOpenLines_Separate(t *testing.T) {
	var mock, _ = setupGPIOD(t)

	var key, ptt, err = OpenLines(
		LineConfig{Method: LineGPIOD, Line: 5}, //nolint:exhaustruct
		LineConfig{Method: LineNone},           //nolint:exhaustruct
	)
	require.NoError(t, err)

	require.NoError(t, key.Set(true))
	require.NoError(t, ptt.Set(true))
	assert.Equal(t, []int{0, 1}, mock.values)
}

func TestLinuxSerialName(t *testing.T) {
	assert.Equal(t, "/dev/ttyS0", linuxSerialName("COM1"))
	assert.Equal(t, "/dev/ttyS2", linuxSerialName("com3"))
	assert.Equal(t, "/dev/ttyUSB0", linuxSerialName("/dev/ttyUSB0"))
	assert.Equal(t, "COMx", linuxSerialName("COMx"))
}

func TestCM108Report(t *testing.T) {
	var data, err = cm108Report(3, true)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0x04, 0x04, 0}, data)

	data, err = cm108Report(3, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0x04, 0}, data)

	data, err = cm108Report(8, true)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0x80, 0x80, 0}, data)

	for _, n := range []int{0, 9, -1} {
		var _, rerr = cm108Report(n, true)
		assert.ErrorIs(t, rerr, ErrBadLine, "gpio %d", n)
	}
}

type bufferCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufferCloser) Close() error {
	b.closed = true
	return nil
}

func TestCM108Line(t *testing.T) {
	var dev = new(bufferCloser)
	var line = &cm108Line{name: "/dev/hidraw9", num: 1, dev: dev}

	require.NoError(t, line.Set(true))
	require.NoError(t, line.Set(false))
	assert.Equal(t, []byte{0, 0, 1, 1, 0, 0, 0, 0, 1, 0}, dev.Bytes())

	require.NoError(t, line.Close())
	assert.True(t, dev.closed)
}

func TestOpenCM108_NeedsDevice(t *testing.T) {
	var _, err = OpenLine("ptt", LineConfig{Method: LineCM108}) //nolint:exhaustruct
	assert.ErrorIs(t, err, ErrNoCM108Device)

	_, err = OpenLine("ptt", LineConfig{Method: LineCM108, Device: "/dev/hidraw0", Line: 9}) //nolint:exhaustruct
	assert.ErrorIs(t, err, ErrBadLine)
}

func TestIsCM108Compatible(t *testing.T) {
	for _, tc := range []struct {
		vid, pid int
		want     bool
	}{
		{0x0d8c, 0x000c, true},
		{0x0d8c, 0x0008, true},
		{0x0d8c, 0x000f, true},
		{0x0d8c, 0x0010, false},
		{0x0d8c, 0x013c, true},
		{0x0c76, 0x1605, true},
		{0x0c76, 0x1606, false},
		{0x1209, 0x7388, true},
		{0x08bb, 0x2904, false},
	} {
		assert.Equal(t, tc.want, IsCM108Compatible(tc.vid, tc.pid), "%04x %04x", tc.vid, tc.pid)
	}
}
