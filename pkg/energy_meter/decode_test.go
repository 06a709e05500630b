package energy_meter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var allOrders = []ByteOrder{LBF_LWF, LBF_HWF, HBF_LWF, HBF_HWF}

func TestCombineBytesOrders(t *testing.T) {

	assert := assert.New(t)

	buf := []byte{0x01, 0x02, 0x03, 0x04}

	assert.Equal(int32(0x04030201), Decode(buf, 0, LBF_LWF, DATATYPE_INT32, 0))
	assert.Equal(int32(0x02010403), Decode(buf, 0, LBF_HWF, DATATYPE_INT32, 0))
	assert.Equal(int32(0x03040102), Decode(buf, 0, HBF_LWF, DATATYPE_INT32, 0))
	assert.Equal(int32(0x01020304), Decode(buf, 0, HBF_HWF, DATATYPE_INT32, 0))

	// 16 bit values only look at byte order
	assert.Equal(int32(0x0201), Decode(buf, 0, LBF_HWF, DATATYPE_INT16, 0))
	assert.Equal(int32(0x0102), Decode(buf, 0, HBF_LWF, DATATYPE_INT16, 0))
	assert.Equal(int32(0x0304), Decode(buf, 1, HBF_HWF, DATATYPE_INT16, 0))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {

	assert := assert.New(t)

	for _, order := range allOrders {
		for _, dataType := range []DataType{DATATYPE_INT32, DATATYPE_FLOAT32, DATATYPE_INT16} {
			buf := make([]byte, 3*dataType.Width())
			values := []int32{1234, -321, 0}
			for i, v := range values {
				Encode(buf, i, order, dataType, v, 0)
			}
			for i, v := range values {
				assert.Equal(v, Decode(buf, i, order, dataType, 0), "%s %s value %d", order, dataType, i)
			}
			assert.Equal(buf[:dataType.Width()], func() []byte {
				out := make([]byte, dataType.Width())
				SplitBytes(out, 0, CombineBytes(buf, 0, order, dataType), order, dataType)
				return out
			}(), "%s %s split(combine)", order, dataType)
		}
	}
}

func TestDecodeSignExtendsInt16(t *testing.T) {
	assert.Equal(t, int32(-1), Decode([]byte{0xFF, 0xFF}, 0, HBF_HWF, DATATYPE_INT16, 0))
	assert.Equal(t, int32(-2), Decode([]byte{0xFE, 0xFF}, 0, LBF_LWF, DATATYPE_INT16, 0))
}

func TestDecodeTruncatesTowardZero(t *testing.T) {

	assert := assert.New(t)

	buf := make([]byte, 4)

	Encode(buf, 0, HBF_HWF, DATATYPE_INT32, -1999, 0)
	assert.Equal(int32(-1), Decode(buf, 0, HBF_HWF, DATATYPE_INT32, 3))

	Encode(buf, 0, HBF_HWF, DATATYPE_INT32, 1999, 0)
	assert.Equal(int32(1), Decode(buf, 0, HBF_HWF, DATATYPE_INT32, 3))

	// -15.5 mA
	Encode(buf, 0, HBF_HWF, DATATYPE_FLOAT32, -155, -4)
	assert.Equal(int32(-15), Decode(buf, 0, HBF_HWF, DATATYPE_FLOAT32, -3))

	// 12.75 A to dA
	Encode(buf, 0, HBF_HWF, DATATYPE_FLOAT32, 1275, -2)
	assert.Equal(int32(127), Decode(buf, 0, HBF_HWF, DATATYPE_FLOAT32, -1))
}

func TestDecodeNegativeExponentMultiplies(t *testing.T) {

	assert := assert.New(t)

	buf := make([]byte, 2)
	Encode(buf, 0, HBF_HWF, DATATYPE_INT16, 42, 0)
	assert.Equal(int32(4200), Decode(buf, 0, HBF_HWF, DATATYPE_INT16, -2))
}

func TestDecodeRejectsExponentOutOfRange(t *testing.T) {
	buf := make([]byte, 4)
	assert.Panics(t, func() { Decode(buf, 0, HBF_HWF, DATATYPE_INT32, 10) })
	assert.Panics(t, func() { Decode(buf, 0, HBF_HWF, DATATYPE_INT32, -10) })
	assert.NotPanics(t, func() { Decode(buf, 0, HBF_HWF, DATATYPE_INT32, -9) })
}
