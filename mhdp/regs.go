package mhdp

// memory regions

const (
	AddrIMem   = 0x10000 // instruction memory
	AddrDMem   = 0x20000 // data memory
	AddrPHYAFE = 0x80000 // PHY analog front end registers, 4-byte stride
)

// APB configuration register offsets

const (
	RegAPBCtrl      = 0x00 // microcontroller memory path and reset (RW)
	RegXTIntCtrl    = 0x04
	RegKeepAlive    = 0x18 // firmware heartbeat counter (R)
	RegVerL         = 0x1c // firmware version, low byte (R)
	RegVerH         = 0x20 // firmware version, high byte (R)
	RegVerLibL      = 0x24 // firmware library version, low byte (R)
	RegVerLibH      = 0x28 // firmware library version, high byte (R)
	RegSWDebugL     = 0x2c
	RegSWDebugH     = 0x30
	RegSWClkL       = 0x3c
	RegSWClkH       = 0x40 // firmware clock in MHz (RW)
	RegSWEvents0    = 0x44 // latched firmware events (R)
	RegSWEvents1    = 0x48
	RegSWEvents2    = 0x4c
	RegSWEvents3    = 0x50
	RegXTOCDCtrl    = 0x60
	RegAPBIntMask   = 0x6c // APB interrupt mask; 0 enables mailbox and PIF (RW)
	RegAPBStatusMsk = 0x70
)

// APB_CTRL bits
const (
	apbXTReset  = 1 << 0
	apbDRAMPath = 1 << 1
	apbIRAMPath = 1 << 2
)

// source clock and reset register offsets

const (
	RegSourceHDTXCar   = 0x0900
	RegSourceDPTXCar   = 0x0904
	RegSourcePHYCar    = 0x0908
	RegSourceCECCar    = 0x090c
	RegSourceCBUSCar   = 0x0910
	RegSourcePktCar    = 0x0918
	RegSourceAIFCar    = 0x091c
	RegSourceCipherCar = 0x0920
	RegSourceCryptoCar = 0x0924
)

// mailbox module ids

const (
	ModuleDPTX        = 0x01
	ModuleHDCPTX      = 0x07
	ModuleHDCPRX      = 0x08
	ModuleHDCPGeneral = 0x09
	ModuleGeneral     = 0x0a
)

// general module opcodes

const (
	GeneralMainControl   = 0x01
	GeneralTestEcho      = 0x02
	GeneralBusSettings   = 0x03
	GeneralTestAccess    = 0x04
	GeneralWriteRegister = 0x05
	GeneralWriteField    = 0x06
	GeneralReadRegister  = 0x07
	GeneralGetHPDState   = 0x11
)

// DP TX module opcodes

const (
	DPTXSetPowerMng         = 0x00
	DPTXSetHostCapabilities = 0x01
	DPTXGetEDID             = 0x02
	DPTXReadDPCD            = 0x03
	DPTXWriteDPCD           = 0x04
	DPTXEnableEvent         = 0x05
	DPTXWriteRegister       = 0x06
	DPTXReadRegister        = 0x07
	DPTXWriteField          = 0x08
	DPTXTrainingControl     = 0x09
	DPTXReadEvent           = 0x0a
	DPTXReadLinkStat        = 0x0b
	DPTXSetVideo            = 0x0c
	DPTXSetAudio            = 0x0d
	DPTXGetLastAUXStatus    = 0x0e
	DPTXSetLinkBreakPoint   = 0x0f
	DPTXForceLanes          = 0x10
	DPTXHPDState            = 0x11
	DPTXAdjustLT            = 0x12
)

// firmware main control states
const (
	FWStandby = 0
	FWActive  = 1
)

// ENABLE_EVENT bits
const (
	EventEnableHPD      = 1 << 0
	EventEnableTraining = 1 << 1
)

// TRAINING_CONTROL commands
const (
	LinkTrainingNotActive = 0
	LinkTrainingRun       = 1
	LinkTrainingRestart   = 2
)

// training event bits (READ_EVENT byte 1)
const (
	FullLTStarted       = 1 << 0
	FastLTStarted       = 1 << 1
	ClkRecoveryFinished = 1 << 2
	EQPhaseFinished     = 1 << 3
	FastLTStartFinished = 1 << 4
	ClkRecoveryFailed   = 1 << 5
	EQPhaseFailed       = 1 << 6
	FastLTFailed        = 1 << 7
)

// SW_EVENTS0 bits
const (
	SWEventHPD      = 1 << 0
	SWEventTraining = 1 << 1
)

// host capability fields
const (
	scramblerEn        = 1 << 4
	voltageLevel2      = 2
	preEmphasisLevel3  = 3
	pts1               = 1 << 0
	pts2               = 1 << 1
	pts3               = 1 << 2
	pts4               = 1 << 3
	fastLTNotSupport   = 0
	laneMappingNormal  = 0x1b
	laneMappingFlipped = 0xe4
	enhancedFraming    = 1
)

// SOURCE_DPTX_CAR
const (
	cfgDPTXVIFClkEn        = 1 << 0
	cfgDPTXVIFClkRstnEn    = 1 << 1
	dptxSysClkEn           = 1 << 2
	dptxSysClkRstnEn       = 1 << 3
	sourceAUXSysClkEn      = 1 << 4
	sourceAUXSysClkRstnEn  = 1 << 5
	dptxPHYCharClkEn       = 1 << 6
	dptxPHYCharRstnEn      = 1 << 7
	dptxPHYDataClkEn       = 1 << 8
	dptxPHYDataRstnEn      = 1 << 9
	dptxFrmrDataClkEn      = 1 << 10
	dptxFrmrDataClkRstnEn  = 1 << 11
	sourcePHYClkEn         = 1 << 0 // SOURCE_PHY_CAR
	sourcePHYRstnEn        = 1 << 1
	sourcePktDataClkEn     = 1 << 0 // SOURCE_PKT_CAR
	sourcePktDataRstnEn    = 1 << 1
	sourcePktSysClkEn      = 1 << 2
	sourcePktSysRstnEn     = 1 << 3
	sourceAIFClkEn         = 1 << 0 // SOURCE_AIF_CAR
	sourceAIFClkRstnEn     = 1 << 1
	sourceAIFSysClkEn      = 1 << 2
	sourceAIFSysRstnEn     = 1 << 3
	spdifCDRClkEn          = 1 << 4
	spdifCDRClkRstnEn      = 1 << 5
	sourceCipherCharClkEn  = 1 << 0 // SOURCE_CIPHER_CAR
	sourceCipherCharRstnEn = 1 << 1
	sourceCipherSysClkEn   = 1 << 2
	sourceCipherSysRstnEn  = 1 << 3
	sourceCryptoSysClkEn   = 1 << 0 // SOURCE_CRYPTO_CAR
	sourceCryptoSysRstnEn  = 1 << 1
)
