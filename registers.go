package rfm69

// Register addresses. See the RFM69CW datasheet, chapter 6 "Configuration
// and Status Registers".
type register uint8

const (
	regFifo          register = 0x00
	regOpMode        register = 0x01
	regDataModul     register = 0x02
	regBitrateMsb    register = 0x03
	regBitrateLsb    register = 0x04
	regFdevMsb       register = 0x05
	regFdevLsb       register = 0x06
	regFrfMsb        register = 0x07
	regFrfMid        register = 0x08
	regFrfLsb        register = 0x09
	regVersion       register = 0x10
	regLna           register = 0x18
	regRxBw          register = 0x19
	regRssiValue     register = 0x24
	regDioMapping1   register = 0x25
	regDioMapping2   register = 0x26
	regIrqFlags1     register = 0x27
	regIrqFlags2     register = 0x28
	regRssiThresh    register = 0x29
	regPreambleMsb   register = 0x2C
	regPreambleLsb   register = 0x2D
	regSyncConfig    register = 0x2E
	regSyncValue1    register = 0x2F
	regPacketConfig1 register = 0x37
	regFifoThresh    register = 0x3C
	regPacketConfig2 register = 0x3D
	regTestDagc      register = 0x6F
)

func (r register) addr() uint8 { return uint8(r) }

// versionCheck is the expected content of regVersion on a genuine RFM69(CW).
const versionCheck = 0x24

// OpMode values, written to regOpMode.
type OpMode uint8

const (
	OpModeSequencerOff OpMode = 0x80
	OpModeListenOn     OpMode = 0x40
	OpModeListenAbort  OpMode = 0x20
	OpModeRx           OpMode = 0x10
	OpModeTx           OpMode = 0x0c
	OpModeFreqSyn      OpMode = 0x08
	OpModeStandby      OpMode = 0x04
	OpModeSleep        OpMode = 0x00
)

// Modulation composes the DataModul register.
type Modulation struct {
	DataMode          DataMode
	ModulationType    ModulationType
	ModulationShaping ModulationShaping
}

func (m Modulation) value() uint8 {
	return uint8(m.DataMode) | uint8(m.ModulationType) | uint8(m.ModulationShaping)
}

type DataMode uint8

const (
	DataModePacket            DataMode = 0x00
	DataModeContinuous        DataMode = 0x40
	DataModeContinuousBitSync DataMode = 0x60
)

type ModulationType uint8

const (
	ModulationTypeFsk ModulationType = 0x00
	ModulationTypeOok ModulationType = 0x08
)

type ModulationShaping uint8

const (
	Shaping00 ModulationShaping = 0x00
	Shaping01 ModulationShaping = 0x01
	Shaping10 ModulationShaping = 0x02
	Shaping11 ModulationShaping = 0x03
)

// FifoMode selects how FifoThresh's IRQ-trigger bit behaves.
type FifoMode struct {
	notEmpty bool
	level    uint8
}

// FifoModeNotEmpty triggers on FIFO-not-empty.
func FifoModeNotEmpty() FifoMode { return FifoMode{notEmpty: true} }

// FifoModeLevel triggers when the FIFO holds more than level bytes.
func FifoModeLevel(level uint8) FifoMode { return FifoMode{level: level} }

type InterPacketRxDelay uint8

const (
	Delay1Bit     InterPacketRxDelay = 0x00
	Delay2Bits    InterPacketRxDelay = 0x10
	Delay4Bits    InterPacketRxDelay = 0x20
	Delay8Bits    InterPacketRxDelay = 0x30
	Delay16Bits   InterPacketRxDelay = 0x40
	Delay32Bits   InterPacketRxDelay = 0x50
	Delay64Bits   InterPacketRxDelay = 0x60
	Delay128Bits  InterPacketRxDelay = 0x70
	Delay256Bits  InterPacketRxDelay = 0x80
	Delay512Bits  InterPacketRxDelay = 0x90
	Delay1024Bits InterPacketRxDelay = 0xA0
	Delay2048Bits InterPacketRxDelay = 0xB0
)

type PacketDc uint8

const (
	PacketDcNone       PacketDc = 0x00
	PacketDcManchester PacketDc = 0x20
	PacketDcWhitening  PacketDc = 0x40
)

type PacketFiltering uint8

const (
	PacketFilteringNone      PacketFiltering = 0x00
	PacketFilteringAddress   PacketFiltering = 0x02
	PacketFilteringBroadcast PacketFiltering = 0x04
)

// PacketFormat is Variable(n) or Fixed(n), n being the configured/maximum
// packet length.
type PacketFormat struct {
	variable bool
	size     uint8
}

func PacketFormatVariable(size uint8) PacketFormat { return PacketFormat{variable: true, size: size} }
func PacketFormatFixed(size uint8) PacketFormat    { return PacketFormat{size: size} }

// PacketConfig composes PacketConfig1/PacketConfig2.
type PacketConfig struct {
	Format             PacketFormat
	Dc                 PacketDc
	CRC                bool
	Filtering          PacketFiltering
	InterPacketRxDelay InterPacketRxDelay
	AutoRxRestart      bool
}

// LnaConfig composes the Lna register.
type LnaConfig struct {
	Zin        LnaImpedance
	GainSelect LnaGain
}

type LnaImpedance uint8

const (
	LnaImpedance50Ohm  LnaImpedance = 0x00
	LnaImpedance200Ohm LnaImpedance = 0x80
)

type LnaGain uint8

const (
	LnaGainAgcLoop LnaGain = 0b000
	LnaGain1       LnaGain = 0b001
	LnaGain2       LnaGain = 0b010
	LnaGain3       LnaGain = 0b011
	LnaGain4       LnaGain = 0b100
	LnaGain5       LnaGain = 0b101
	LnaGain6       LnaGain = 0b110
)

type ContinuousDagc uint8

const (
	ContinuousDagcNormal                          ContinuousDagc = 0x00
	ContinuousDagcImprovedMarginAfcLowBetaOn1     ContinuousDagc = 0x20
	ContinuousDagcImprovedMarginAfcLowBetaOn0     ContinuousDagc = 0x30
)

// RxBw composes the RxBw register from a DCC cutoff and a modulation-specific
// bandwidth selector.
type RxBw struct {
	DccCutoff DccCutoff
	Freq      RxBwFreq
}

type DccCutoff uint8

const (
	DccCutoffPercent16     DccCutoff = 0x00
	DccCutoffPercent8      DccCutoff = 0x20
	DccCutoffPercent4      DccCutoff = 0x40
	DccCutoffPercent2      DccCutoff = 0x60
	DccCutoffPercent1      DccCutoff = 0x80
	DccCutoffPercent0dot5  DccCutoff = 0xA0
	DccCutoffPercent0dot25 DccCutoff = 0xC0
	DccCutoffPercent0dot125 DccCutoff = 0xE0
)

// RxBwFreq is the modulation-specific bandwidth table, implemented by
// RxBwFsk and RxBwOok.
type RxBwFreq interface {
	value() uint8
}

type RxBwFsk uint8

const (
	RxBwFskKhz2dot6 RxBwFsk = iota
	RxBwFskKhz3dot1
	RxBwFskKhz3dot9
	RxBwFskKhz5dot2
	RxBwFskKhz6dot3
	RxBwFskKhz7dot8
	RxBwFskKhz10dot4
	RxBwFskKhz12dot5
	RxBwFskKhz15dot6
	RxBwFskKhz20dot8
	RxBwFskKhz25dot0
	RxBwFskKhz31dot3
	RxBwFskKhz41dot7
	RxBwFskKhz50dot0
	RxBwFskKhz62dot5
	RxBwFskKhz83dot3
	RxBwFskKhz100dot0
	RxBwFskKhz125dot0
	RxBwFskKhz166dot7
	RxBwFskKhz200dot0
	RxBwFskKhz250dot0
	RxBwFskKhz333dot3
	RxBwFskKhz400dot0
	RxBwFskKhz500dot0
)

// rxBwFskValues is the 24-entry mantissa/exponent table for FSK bandwidths,
// transcribed byte-exact from the chip's RxBwFsk::value() match arms.
var rxBwFskValues = [24]uint8{
	0b10<<3 | 7, // Khz2dot6
	0b01<<3 | 7, // Khz3dot1
	7,           // Khz3dot9
	0b10<<3 | 6, // Khz5dot2
	0b01<<3 | 6, // Khz6dot3
	6,           // Khz7dot8
	0b10<<3 | 5, // Khz10dot4
	0b01<<3 | 5, // Khz12dot5
	5,           // Khz15dot6
	0b10<<3 | 4, // Khz20dot8
	0b01<<3 | 4, // Khz25dot0
	4,           // Khz31dot3
	0b10<<3 | 3, // Khz41dot7
	0b01<<3 | 3, // Khz50dot0
	3,           // Khz62dot5
	0b10<<3 | 2, // Khz83dot3
	0b01<<3 | 2, // Khz100dot0
	2,           // Khz125dot0
	0b10<<3 | 1, // Khz166dot7
	0b01<<3 | 1, // Khz200dot0
	1,           // Khz250dot0
	0b10 << 3,   // Khz333dot3
	0b01 << 3,   // Khz400dot0
	0,           // Khz500dot0
}

func (r RxBwFsk) value() uint8 { return rxBwFskValues[r] }

type RxBwOok uint8

const (
	RxBwOokKhz1dot3 RxBwOok = iota
	RxBwOokKhz1dot6
	RxBwOokKhz2dot0
	RxBwOokKhz2dot6
	RxBwOokKhz3dot1
	RxBwOokKhz3dot9
	RxBwOokKhz5dot2
	RxBwOokKhz6dot3
	RxBwOokKhz7dot8
	RxBwOokKhz10dot4
	RxBwOokKhz12dot5
	RxBwOokKhz15dot6
	RxBwOokKhz20dot8
	RxBwOokKhz25dot0
	RxBwOokKhz31dot3
	RxBwOokKhz41dot7
	RxBwOokKhz50dot0
	RxBwOokKhz62dot5
	RxBwOokKhz83dot3
	RxBwOokKhz100dot0
	RxBwOokKhz125dot0
	RxBwOokKhz166dot7
	RxBwOokKhz200dot0
	RxBwOokKhz250dot0
)

// rxBwOokValues is the 24-entry table for OOK bandwidths, transcribed
// byte-exact from the chip's RxBwOok::value() match arms.
var rxBwOokValues = [24]uint8{
	0b10<<3 | 7, // Khz1dot3
	0b01<<3 | 7, // Khz1dot6
	7,           // Khz2dot0
	0b10<<3 | 6, // Khz2dot6
	0b01<<3 | 6, // Khz3dot1
	6,           // Khz3dot9
	0b10<<3 | 5, // Khz5dot2
	0b01<<3 | 5, // Khz6dot3
	5,           // Khz7dot8
	0b10<<3 | 4, // Khz10dot4
	0b01<<3 | 4, // Khz12dot5
	4,           // Khz15dot6
	0b10<<3 | 3, // Khz20dot8
	0b01<<3 | 3, // Khz25dot0
	3,           // Khz31dot3
	0b10<<3 | 2, // Khz41dot7
	0b01<<3 | 2, // Khz50dot0
	2,           // Khz62dot5
	0b10<<3 | 1, // Khz83dot3
	0b01<<3 | 1, // Khz100dot0
	1,           // Khz125dot0
	0b10 << 3,   // Khz166dot7
	0b01 << 3,   // Khz200dot0
	0,           // Khz250dot0
}

func (r RxBwOok) value() uint8 { return rxBwOokValues[r] }

// IrqFlags1 bits, read from regIrqFlags1.
type IrqFlags1 uint8

const (
	IrqFlags1SyncAddressMatch IrqFlags1 = 0x01
	IrqFlags1AutoMode         IrqFlags1 = 0x02
	IrqFlags1Timeout          IrqFlags1 = 0x04
	IrqFlags1Rssi             IrqFlags1 = 0x08
	IrqFlags1PllLock          IrqFlags1 = 0x10
	IrqFlags1TxReady          IrqFlags1 = 0x20
	IrqFlags1RxReady          IrqFlags1 = 0x40
	IrqFlags1ModeReady        IrqFlags1 = 0x80
)

// IrqFlags2 bits, read from regIrqFlags2.
type IrqFlags2 uint8

const (
	IrqFlags2CrcOk        IrqFlags2 = 0x02
	IrqFlags2PayloadReady IrqFlags2 = 0x04
	IrqFlags2PacketSent   IrqFlags2 = 0x08
	IrqFlags2FifoOverrun  IrqFlags2 = 0x10
	IrqFlags2FifoLevel    IrqFlags2 = 0x20
	IrqFlags2FifoNotEmpty IrqFlags2 = 0x40
	IrqFlags2FifoFull     IrqFlags2 = 0x80
)
