package rfm69

// LowPowerLabDefaults configures the radio to be compatible with the
// LowPowerLab RFM69 protocol (see https://github.com/LowPowerLab/RFM69).
// This preset is not exercised against real LowPowerLab firmware upstream;
// treat interoperability as best-effort, not a contract.
func LowPowerLabDefaults(d *Device, networkID uint8, frequencyHz uint32) error {
	return applyPreset(d, networkID, frequencyHz, Modulation{
		DataMode:          DataModePacket,
		ModulationType:    ModulationTypeFsk,
		ModulationShaping: Shaping00,
	}, 55_555, 50_000)
}

// GFSK100kDefaults configures the radio for GFSK shaping at 100 kbit/s,
// trading bandwidth efficiency for a tighter spectral footprint than
// LowPowerLabDefaults. Otherwise identical to LowPowerLabDefaults.
func GFSK100kDefaults(d *Device, networkID uint8, frequencyHz uint32) error {
	return applyPreset(d, networkID, frequencyHz, Modulation{
		DataMode:          DataModePacket,
		ModulationType:    ModulationTypeFsk,
		ModulationShaping: Shaping10, // GFSK, BT = 0.5
	}, 100_000, 50_000)
}

func applyPreset(d *Device, networkID uint8, frequencyHz uint32, mod Modulation, bitRate, fdev uint32) error {
	if err := d.Reset(); err != nil {
		return err
	}
	if err := d.SetMode(OpModeStandby); err != nil {
		return err
	}
	if err := d.SetModulation(mod); err != nil {
		return err
	}
	if err := d.SetBitRate(bitRate); err != nil {
		return err
	}
	if err := d.SetFdev(fdev); err != nil {
		return err
	}
	if err := d.SetRxBw(RxBw{DccCutoff: DccCutoffPercent4, Freq: RxBwFskKhz125dot0}); err != nil {
		return err
	}
	if err := d.SetPreambleLength(3); err != nil {
		return err
	}
	if err := d.SetSync([]byte{0x2d, networkID}); err != nil {
		return err
	}
	if err := d.SetPacketConfig(PacketConfig{
		Format:             PacketFormatVariable(66),
		Dc:                 PacketDcNone,
		Filtering:          PacketFilteringNone,
		CRC:                true,
		InterPacketRxDelay: Delay2Bits,
		AutoRxRestart:      true,
	}); err != nil {
		return err
	}
	if err := d.SetFifoMode(FifoModeNotEmpty()); err != nil {
		return err
	}
	if err := d.SetLna(LnaConfig{Zin: LnaImpedance200Ohm, GainSelect: LnaGainAgcLoop}); err != nil {
		return err
	}
	if err := d.SetRssiThreshold(220); err != nil {
		return err
	}
	if err := d.SetFrequency(frequencyHz); err != nil {
		return err
	}
	// Transitioning through FreqSyn after writing the frequency is required:
	// skipping it has been observed to prevent a later PLL lock.
	if err := d.SetMode(OpModeFreqSyn); err != nil {
		return err
	}
	if err := d.SetContinuousDagc(ContinuousDagcImprovedMarginAfcLowBetaOn0); err != nil {
		return err
	}
	return d.SetMode(OpModeSleep)
}
