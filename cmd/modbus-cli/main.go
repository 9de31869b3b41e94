package main

import (
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/otterbyte/modbus"
)

func main() {
	var err error
	var help bool
	var client *modbus.Client
	var config *modbus.Configuration
	var target string
	var caPath string
	var certPath string
	var keyPath string
	var clientKeyPair tls.Certificate
	var speed uint
	var dataBits uint
	var parity string
	var stopBits string
	var endianness string
	var wordOrder string
	var timeout string
	var wireFormat modbus.WireFormatOptions
	var unitID uint
	var runList []operation

	flag.StringVar(&target, "target", "", "target device to connect to (e.g. tcp://somehost:502) [required]")
	flag.UintVar(&speed, "speed", 19200, "serial bus speed in bps (rtu)")
	flag.UintVar(&dataBits, "data-bits", 8, "number of bits per character on the serial bus (rtu)")
	flag.StringVar(&parity, "parity", "none", "parity bit <none|even|odd> on the serial bus (rtu)")
	flag.StringVar(&stopBits, "stop-bits", "2", "number of stop bits <1|1.5|2> on the serial bus (rtu)")
	flag.StringVar(&timeout, "timeout", "3s", "timeout value")
	flag.StringVar(&endianness, "endianness", "big", "register endianness <little|big>")
	flag.StringVar(&wordOrder, "word-order", "highfirst", "word ordering for 32/64-bit registers <highfirst|hf|lowfirst|lf>")
	flag.UintVar(&unitID, "unit-id", 1, "unit/slave id to use")
	flag.StringVar(&certPath, "cert", "", "path to TLS client certificate")
	flag.StringVar(&keyPath, "key", "", "path to TLS client key")
	flag.StringVar(&caPath, "ca", "", "path to TLS CA/server certificate")
	flag.BoolVar(&help, "help", false, "show a wall-of-text help message")
	flag.Parse()

	if help {
		displayHelp()
		os.Exit(0)
	}

	if target == "" {
		fmt.Printf("no target specified, please use --target\n")
		os.Exit(1)
	}

	config = &modbus.Configuration{
		URL:      target,
		Speed:    speed,
		DataBits: dataBits,
	}

	switch parity {
	case "none":
		config.Parity = modbus.PARITY_NONE
	case "odd":
		config.Parity = modbus.PARITY_ODD
	case "even":
		config.Parity = modbus.PARITY_EVEN
	default:
		fmt.Printf("unknown parity setting '%s' (should be one of none, odd or even)\n", parity)
		os.Exit(1)
	}

	switch stopBits {
	case "1":
		config.StopBits = modbus.STOPBITS_ONE
	case "1.5":
		config.StopBits = modbus.STOPBITS_ONE_POINT_FIVE
	case "2":
		config.StopBits = modbus.STOPBITS_TWO
	default:
		fmt.Printf("unknown stop-bits setting '%s' (should be one of 1, 1.5 or 2)\n", stopBits)
		os.Exit(1)
	}

	config.Timeout, err = time.ParseDuration(timeout)
	if err != nil {
		fmt.Printf("failed to parse timeout setting '%s': %v\n", timeout, err)
		os.Exit(1)
	}

	wireFormat = modbus.DefaultWireFormatOptions()
	switch endianness {
	case "big":
		wireFormat.ByteOrder = modbus.BigEndian
	case "little":
		wireFormat.ByteOrder = modbus.LittleEndian
	default:
		fmt.Printf("unknown endianness setting '%s' (should either be big or little)\n", endianness)
		os.Exit(1)
	}

	switch wordOrder {
	case "highfirst", "hf":
		wireFormat.WordOrder = modbus.HighWordFirst
	case "lowfirst", "lf":
		wireFormat.WordOrder = modbus.LowWordFirst
	default:
		fmt.Printf("unknown word order setting '%s' (should be one of highfirst, hf, lowfirst, lf)\n", wordOrder)
		os.Exit(1)
	}

	if strings.HasPrefix(target, "tcp+tls://") {
		if certPath == "" {
			fmt.Print("TLS requested but no client certificate given, please use --cert\n")
			os.Exit(1)
		}
		if keyPath == "" {
			fmt.Print("TLS requested but no client key given, please use --key\n")
			os.Exit(1)
		}
		if caPath == "" {
			fmt.Print("TLS requested but no CA/server cert given, please use --ca\n")
			os.Exit(1)
		}

		clientKeyPair, err = tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			fmt.Printf("failed to load client tls key pair: %v\n", err)
			os.Exit(1)
		}
		config.TLSClientCert = &clientKeyPair

		config.TLSRootCAs, err = modbus.LoadCertPool(caPath)
		if err != nil {
			fmt.Printf("failed to load tls CA/server certificate: %v\n", err)
			os.Exit(1)
		}
	}

	if len(flag.Args()) == 0 {
		fmt.Printf("nothing to do.\n")
		os.Exit(0)
	}

	for _, arg := range flag.Args() {
		var splitArgs = strings.Split(arg, ":")
		var o operation

		if len(splitArgs) < 2 && splitArgs[0] != "repeat" && splitArgs[0] != "date" {
			fmt.Printf("illegal command format (should be command:arg1:arg2..., e.g. rh:uint32:0x1000+5)\n")
			os.Exit(2)
		}

		switch splitArgs[0] {
		case "rc", "readCoil", "readCoils", "rdi", "readDiscreteInput", "readDiscreteInputs":
			if len(splitArgs) != 2 {
				fmt.Printf("need exactly 1 argument after rc/rdi, got %v\n", len(splitArgs)-1)
				os.Exit(2)
			}
			o.isCoil = splitArgs[0] == "rc" || splitArgs[0] == "readCoil" || splitArgs[0] == "readCoils"
			o.op = readBools
			o.addr, o.quantity, err = parseAddressAndQuantity(splitArgs[1])
			if err != nil {
				fmt.Printf("failed to parse address ('%v'): %v\n", splitArgs[1], err)
				os.Exit(2)
			}

		case "rh", "readHoldingRegister", "readHoldingRegisters",
			"ri", "readInputRegister", "readInputRegisters":
			if len(splitArgs) != 3 {
				fmt.Printf("need exactly 2 arguments after rh/ri, got %v\n", len(splitArgs)-1)
				os.Exit(2)
			}
			o.isHoldingReg = splitArgs[0] == "rh" || splitArgs[0] == "readHoldingRegister" || splitArgs[0] == "readHoldingRegisters"

			switch splitArgs[1] {
			case "uint16":
				o.op = readUint16
			case "int16":
				o.op = readInt16
			case "uint32":
				o.op = readUint32
			case "int32":
				o.op = readInt32
			case "float32":
				o.op = readFloat32
			case "uint64":
				o.op = readUint64
			case "int64":
				o.op = readInt64
			case "float64":
				o.op = readFloat64
			default:
				fmt.Printf("unknown register type '%v' (should be one of [u]int16, [u]int32, [u]int64, float32, float64)\n", splitArgs[1])
				os.Exit(2)
			}

			o.addr, o.quantity, err = parseAddressAndQuantity(splitArgs[2])
			if err != nil {
				fmt.Printf("failed to parse address ('%v'): %v\n", splitArgs[2], err)
				os.Exit(2)
			}

		case "wc", "writeCoil":
			if len(splitArgs) != 3 {
				fmt.Printf("need exactly 2 arguments after writeCoil, got %v\n", len(splitArgs)-1)
				os.Exit(2)
			}
			o.op = writeCoil
			o.addr, err = parseUint16(splitArgs[1])
			if err != nil {
				fmt.Printf("failed to parse address ('%v'): %v\n", splitArgs[1], err)
				os.Exit(2)
			}
			switch splitArgs[2] {
			case "true":
				o.coil = true
			case "false":
				o.coil = false
			default:
				fmt.Printf("failed to parse coil value '%v' (should either be true or false)\n", splitArgs[2])
				os.Exit(2)
			}

		case "wr", "writeRegister":
			if len(splitArgs) != 4 {
				fmt.Printf("need exactly 3 arguments after writeRegister, got %v\n", len(splitArgs)-1)
				os.Exit(2)
			}
			o.addr, err = parseUint16(splitArgs[2])
			if err != nil {
				fmt.Printf("failed to parse address ('%v'): %v\n", splitArgs[2], err)
				os.Exit(2)
			}

			switch splitArgs[1] {
			case "uint16":
				o.op = writeUint16
				o.u16, err = parseUint16(splitArgs[3])
			case "int16":
				o.op = writeUint16
				o.u16, err = parseInt16(splitArgs[3])
			case "uint32":
				o.op = writeUint32
				o.u32, err = parseUint32(splitArgs[3])
			case "int32":
				o.op = writeUint32
				o.u32, err = parseInt32(splitArgs[3])
			case "float32":
				o.op = writeFloat32
				o.f32, err = parseFloat32(splitArgs[3])
			case "uint64":
				o.op = writeUint64
				o.u64, err = parseUint64(splitArgs[3])
			case "int64":
				o.op = writeUint64
				o.u64, err = parseInt64(splitArgs[3])
			case "float64":
				o.op = writeFloat64
				o.f64, err = parseFloat64(splitArgs[3])
			default:
				fmt.Printf("unknown register type '%v' (should be one of [u]int16, [u]int32, [u]int64, float32, float64)\n", splitArgs[1])
				os.Exit(2)
			}
			if err != nil {
				fmt.Printf("failed to parse '%s' as %s: %v\n", splitArgs[3], splitArgs[1], err)
				os.Exit(2)
			}

		case "sleep":
			if len(splitArgs) != 2 {
				fmt.Printf("need exactly 1 argument after sleep, got %v\n", len(splitArgs)-1)
				os.Exit(2)
			}
			o.op = sleep
			o.duration, err = time.ParseDuration(splitArgs[1])
			if err != nil {
				fmt.Printf("failed to parse '%s' as duration: %v\n", splitArgs[1], err)
				os.Exit(2)
			}

		case "suid", "setUnitId", "sid":
			if len(splitArgs) != 2 {
				fmt.Printf("need exactly 1 argument after setUnitId, got %v\n", len(splitArgs)-1)
				os.Exit(2)
			}
			o.op = setUnitId
			o.unitID, err = parseUnitId(splitArgs[1])
			if err != nil {
				fmt.Printf("failed to parse '%s' as unit id: %v\n", splitArgs[1], err)
				os.Exit(2)
			}

		case "repeat":
			o.op = repeat

		case "date":
			o.op = date

		case "scan":
			if len(splitArgs) != 2 {
				fmt.Printf("need exactly 1 argument after scan, got %v\n", len(splitArgs)-1)
				os.Exit(2)
			}
			switch splitArgs[1] {
			case "c", "coils":
				o.op = scanBools
				o.isCoil = true
			case "di", "discreteInputs":
				o.op = scanBools
				o.isCoil = false
			case "h", "hr", "holding", "holdingRegisters":
				o.op = scanRegisters
				o.isHoldingReg = true
			case "i", "ir", "input", "inputRegisters":
				o.op = scanRegisters
				o.isHoldingReg = false
			case "s", "sid":
				o.op = scanUnitId
			default:
				fmt.Printf("unknown scan/register type '%s' (valid options <coils|di|hr|ir|s>)\n", splitArgs[1])
				os.Exit(2)
			}

		case "ping":
			if len(splitArgs) < 2 || len(splitArgs) > 3 {
				fmt.Printf("need 1 or 2 arguments after ping, got %v\n", len(splitArgs)-1)
				os.Exit(2)
			}
			o.op = ping
			o.quantity, err = parseUint16(splitArgs[1])
			if err != nil {
				fmt.Printf("failed to parse ping count ('%v'): %v\n", splitArgs[1], err)
				os.Exit(2)
			}
			if o.quantity == 0 {
				fmt.Printf("illegal ping count value (must be >= 1)\n")
				os.Exit(2)
			}
			if len(splitArgs) == 3 {
				o.duration, err = time.ParseDuration(splitArgs[2])
				if err != nil {
					fmt.Printf("failed to parse '%s' as duration: %v\n", splitArgs[2], err)
					os.Exit(2)
				}
			}

		default:
			fmt.Printf("unsupported command '%v'\n", splitArgs[0])
			os.Exit(2)
		}

		runList = append(runList, o)
	}

	client, err = modbus.NewClient(config)
	if err != nil {
		fmt.Printf("failed to create client: %v\n", err)
		os.Exit(1)
	}
	client.SetWireFormat(wireFormat)

	if unitID > 0xff {
		fmt.Printf("set unit id: value '%v' out of range\n", unitID)
		os.Exit(1)
	}
	client.SetUnitID(uint8(unitID))

	err = client.Open()
	if err != nil {
		fmt.Printf("failed to open client: %v\n", err)
		os.Exit(2)
	}
	defer client.Close()

	for opIdx := 0; opIdx < len(runList); opIdx++ {
		o := &runList[opIdx]

		switch o.op {
		case readBools:
			var res []bool
			if o.isCoil {
				res, err = client.ReadCoils(o.addr, o.quantity+1)
			} else {
				res, err = client.ReadDiscreteInputs(o.addr, o.quantity+1)
			}
			if err != nil {
				fmt.Printf("failed to read coils/discrete inputs: %v\n", err)
			} else {
				for idx := range res {
					fmt.Printf("0x%04x\t%-5v : %v\n", o.addr+uint16(idx), o.addr+uint16(idx), res[idx])
				}
			}

		case readUint16, readInt16:
			var res []uint16
			if o.isHoldingReg {
				res, err = client.ReadHoldingRegisters(o.addr, o.quantity+1)
			} else {
				res, err = client.ReadInputRegisters(o.addr, o.quantity+1)
			}
			if err != nil {
				fmt.Printf("failed to read holding/input registers: %v\n", err)
			} else {
				for idx := range res {
					if o.op == readUint16 {
						fmt.Printf("0x%04x\t%-5v : 0x%04x\t%v\n", o.addr+uint16(idx), o.addr+uint16(idx), res[idx], res[idx])
					} else {
						fmt.Printf("0x%04x\t%-5v : 0x%04x\t%v\n", o.addr+uint16(idx), o.addr+uint16(idx), res[idx], int16(res[idx]))
					}
				}
			}

		case readUint32, readInt32:
			var res []uint32
			res, err = client.ReadUint32s(o.addr, o.quantity+1)
			if err != nil {
				fmt.Printf("failed to read holding registers: %v\n", err)
			} else {
				for idx := range res {
					if o.op == readUint32 {
						fmt.Printf("0x%04x\t%-5v : 0x%08x\t%v\n", o.addr+(uint16(idx)*2), o.addr+(uint16(idx)*2), res[idx], res[idx])
					} else {
						fmt.Printf("0x%04x\t%-5v : 0x%08x\t%v\n", o.addr+(uint16(idx)*2), o.addr+(uint16(idx)*2), res[idx], int32(res[idx]))
					}
				}
			}

		case readFloat32:
			var res []float32
			res, err = client.ReadFloat32s(o.addr, o.quantity+1)
			if err != nil {
				fmt.Printf("failed to read holding registers: %v\n", err)
			} else {
				for idx := range res {
					fmt.Printf("0x%04x\t%-5v : %f\n", o.addr+(uint16(idx)*2), o.addr+(uint16(idx)*2), res[idx])
				}
			}

		case readUint64, readInt64:
			var res []uint64
			res, err = client.ReadUint64s(o.addr, o.quantity+1)
			if err != nil {
				fmt.Printf("failed to read holding registers: %v\n", err)
			} else {
				for idx := range res {
					if o.op == readUint64 {
						fmt.Printf("0x%04x\t%-5v : 0x%016x\t%v\n", o.addr+(uint16(idx)*4), o.addr+(uint16(idx)*4), res[idx], res[idx])
					} else {
						fmt.Printf("0x%04x\t%-5v : 0x%016x\t%v\n", o.addr+(uint16(idx)*4), o.addr+(uint16(idx)*4), res[idx], int64(res[idx]))
					}
				}
			}

		case readFloat64:
			var res []float64
			res, err = client.ReadFloat64s(o.addr, o.quantity+1)
			if err != nil {
				fmt.Printf("failed to read holding registers: %v\n", err)
			} else {
				for idx := range res {
					fmt.Printf("0x%04x\t%-5v : %f\n", o.addr+(uint16(idx)*4), o.addr+(uint16(idx)*4), res[idx])
				}
			}

		case writeCoil:
			err = client.WriteCoil(o.addr, o.coil)
			if err != nil {
				fmt.Printf("failed to write %v at coil address 0x%04x: %v\n", o.coil, o.addr, err)
			} else {
				fmt.Printf("wrote %v at coil address 0x%04x\n", o.coil, o.addr)
			}

		case writeUint16:
			err = client.WriteRegister(o.addr, o.u16)
			if err != nil {
				fmt.Printf("failed to write %v at register address 0x%04x: %v\n", o.u16, o.addr, err)
			} else {
				fmt.Printf("wrote %v at register address 0x%04x\n", o.u16, o.addr)
			}

		case writeUint32:
			err = client.WriteUint32s(o.addr, []uint32{o.u32})
			if err != nil {
				fmt.Printf("failed to write %v at address 0x%04x: %v\n", o.u32, o.addr, err)
			} else {
				fmt.Printf("wrote %v at address 0x%04x\n", o.u32, o.addr)
			}

		case writeFloat32:
			err = client.WriteFloat32s(o.addr, []float32{o.f32})
			if err != nil {
				fmt.Printf("failed to write %f at address 0x%04x: %v\n", o.f32, o.addr, err)
			} else {
				fmt.Printf("wrote %f at address 0x%04x\n", o.f32, o.addr)
			}

		case writeUint64:
			err = client.WriteUint64s(o.addr, []uint64{o.u64})
			if err != nil {
				fmt.Printf("failed to write %v at address 0x%04x: %v\n", o.u64, o.addr, err)
			} else {
				fmt.Printf("wrote %v at address 0x%04x\n", o.u64, o.addr)
			}

		case writeFloat64:
			err = client.WriteFloat64s(o.addr, []float64{o.f64})
			if err != nil {
				fmt.Printf("failed to write %f at address 0x%04x: %v\n", o.f64, o.addr, err)
			} else {
				fmt.Printf("wrote %f at address 0x%04x\n", o.f64, o.addr)
			}

		case sleep:
			time.Sleep(o.duration)

		case setUnitId:
			client.SetUnitID(o.unitID)

		case repeat:
			opIdx = -1

		case date:
			fmt.Printf("%s\n", time.Now().Format(time.RFC3339))

		case scanBools:
			performBoolScan(client, o.isCoil)

		case scanRegisters:
			performRegisterScan(client, o.isHoldingReg)

		case scanUnitId:
			performUnitIdScan(client)

		case ping:
			performPing(client, o.quantity, o.duration)

		default:
			fmt.Printf("unknown operation %v\n", o)
			os.Exit(100)
		}
	}
}

const (
	readBools uint = iota + 1
	readUint16
	readInt16
	readUint32
	readInt32
	readFloat32
	readUint64
	readInt64
	readFloat64
	writeCoil
	writeUint16
	writeUint32
	writeFloat32
	writeUint64
	writeFloat64
	setUnitId
	sleep
	repeat
	date
	scanBools
	scanRegisters
	scanUnitId
	ping
)

type operation struct {
	op           uint
	addr         uint16
	isCoil       bool
	isHoldingReg bool
	quantity     uint16
	coil         bool
	u16          uint16
	u32          uint32
	f32          float32
	u64          uint64
	f64          float64
	duration     time.Duration
	unitID       uint8
}

func parseUint16(in string) (uint16, error) {
	val, err := strconv.ParseUint(in, 0, 16)
	return uint16(val), err
}

func parseInt16(in string) (uint16, error) {
	val, err := strconv.ParseInt(in, 0, 16)
	return uint16(int16(val)), err
}

func parseUint32(in string) (uint32, error) {
	val, err := strconv.ParseUint(in, 0, 32)
	return uint32(val), err
}

func parseInt32(in string) (uint32, error) {
	val, err := strconv.ParseInt(in, 0, 32)
	return uint32(int32(val)), err
}

func parseFloat32(in string) (float32, error) {
	val, err := strconv.ParseFloat(in, 32)
	return float32(val), err
}

func parseUint64(in string) (uint64, error) {
	return strconv.ParseUint(in, 0, 64)
}

func parseInt64(in string) (uint64, error) {
	val, err := strconv.ParseInt(in, 0, 64)
	return uint64(val), err
}

func parseFloat64(in string) (float64, error) {
	return strconv.ParseFloat(in, 64)
}

func parseAddressAndQuantity(in string) (addr uint16, quantity uint16, err error) {
	split := strings.Split(in, "+")
	switch len(split) {
	case 1:
		addr, err = parseUint16(in)
	case 2:
		addr, err = parseUint16(split[0])
		if err != nil {
			return
		}
		quantity, err = parseUint16(split[1])
	default:
		err = errors.New("illegal format")
	}
	return
}

func parseUnitId(in string) (uint8, error) {
	val, err := strconv.ParseUint(in, 0, 8)
	return uint8(val), err
}

func performBoolScan(client *modbus.Client, isCoil bool) {
	var err error
	var count uint
	regType := "discrete input"
	if isCoil {
		regType = "coil"
	}

	fmt.Printf("starting %s scan\n", regType)

	for addr := uint32(0); addr <= 0xffff; addr++ {
		var vals []bool
		if isCoil {
			vals, err = client.ReadCoils(uint16(addr), 1)
		} else {
			vals, err = client.ReadDiscreteInputs(uint16(addr), 1)
		}
		switch err {
		case modbus.ErrIllegalDataAddress, modbus.ErrIllegalFunction:
			continue
		case nil:
			fmt.Printf("0x%04x\t%-5v : %v\n", addr, addr, vals[0])
			count++
		default:
			fmt.Printf("failed to read %s at address 0x%04x: %v\n", regType, addr, err)
		}
	}

	fmt.Printf("found %v %ss\n", count, regType)
}

func performRegisterScan(client *modbus.Client, isHoldingReg bool) {
	var err error
	var count uint
	regType := "input register"
	if isHoldingReg {
		regType = "holding register"
	}

	fmt.Printf("starting %s scan\n", regType)

	for addr := uint32(0); addr <= 0xffff; addr++ {
		var vals []uint16
		if isHoldingReg {
			vals, err = client.ReadHoldingRegisters(uint16(addr), 1)
		} else {
			vals, err = client.ReadInputRegisters(uint16(addr), 1)
		}
		switch err {
		case modbus.ErrIllegalDataAddress, modbus.ErrIllegalFunction:
			continue
		case nil:
			fmt.Printf("0x%04x\t%-5v : 0x%04x\t%v\n", addr, addr, vals[0], vals[0])
			count++
		default:
			fmt.Printf("failed to read %s at address 0x%04x: %v\n", regType, addr, err)
		}
	}

	fmt.Printf("found %v %ss\n", count, regType)
}

func performUnitIdScan(client *modbus.Client) {
	var err error
	var countOk, countErr, countTimeout, countGWTimeout uint

	fmt.Println("starting unit id scan")

	for unitID := uint(0); unitID <= 0xff; unitID++ {
		client.SetUnitID(uint8(unitID))

		_, err = client.ReadInputRegisters(0, 1)
		switch err {
		case nil, modbus.ErrIllegalDataAddress, modbus.ErrIllegalFunction, modbus.ErrIllegalDataValue:
			fmt.Printf("0x%02x (%3v): ok\n", unitID, unitID)
			countOk++
		case modbus.ErrRequestTimedOut:
			countTimeout++
		case modbus.ErrGWTargetFailedToRespond:
			countGWTimeout++
		default:
			fmt.Printf("0x%02x (%3v): %v\n", unitID, unitID, err)
			countErr++
		}
	}

	fmt.Printf("found %v devices (%v errors, %v timeouts, %v gateway timeouts)\n",
		countOk, countErr, countTimeout, countGWTimeout)
}

func performPing(client *modbus.Client, count uint16, interval time.Duration) {
	var err error
	var okCount, timeoutCount, otherErrCount uint
	var minRTT, maxRTT, avgRTT time.Duration

	fmt.Printf("ping: sending %v requests...\n", count)
	startTs := time.Now()

	for run := uint16(0); run < count; run++ {
		ts := time.Now()
		_, err = client.ReadHoldingRegisters(0x0000, 1)
		rtt := time.Since(ts)
		avgRTT += rtt

		if run == 0 || rtt < minRTT {
			minRTT = rtt
		}
		if rtt > maxRTT {
			maxRTT = rtt
		}

		switch err {
		case nil, modbus.ErrIllegalDataAddress, modbus.ErrIllegalFunction:
			okCount++
			fmt.Printf("ok: seq = %v, time: %v\n", run+1, rtt.Round(time.Microsecond))
		case modbus.ErrRequestTimedOut, modbus.ErrGWTargetFailedToRespond:
			timeoutCount++
			fmt.Printf("timeout (%v): seq = %v, time: %v\n", err, run+1, rtt.Round(time.Microsecond))
		default:
			otherErrCount++
			fmt.Printf("error (%v): seq = %v, time: %v\n", err, run+1, rtt.Round(time.Microsecond))
		}

		if interval > 0 {
			time.Sleep(interval)
		}
	}

	fmt.Printf("--- ping statistics ---\n%v queries, %v target replies, %v transmission errors, %v timeouts, time: %v\n",
		count, okCount, otherErrCount, timeoutCount, time.Since(startTs).Round(time.Millisecond))
	fmt.Printf("rtt min/avg/max = %v/%v/%v\n",
		minRTT.Round(time.Microsecond), (avgRTT / time.Duration(count)).Round(time.Microsecond), maxRTT.Round(time.Microsecond))
}

func displayHelp() {
	flag.CommandLine.SetOutput(os.Stdout)
	fmt.Println(`This tool is a modbus command line client for quick interaction with
modbus devices (probing, troubleshooting, scripted reads/writes).

Available options:`)
	flag.PrintDefaults()
	fmt.Printf(`

Commands must be given as trailing arguments after any options.

Example: modbus-cli --target=tcp://somehost:502 --timeout=3s rh:uint16:0x100+5 wc:12:true

Available commands:
  rc:<addr>[+n], rdi:<addr>[+n]           read coils/discrete inputs
  rh:<type>:<addr>[+n], ri:<type>:<addr>[+n]  read holding/input registers
                                           type: uint16,int16,uint32,int32,float32,uint64,int64,float64
  wc:<addr>:<true|false>                  write a single coil
  wr:<type>:<addr>:<value>                write a single register/value
  sleep:<duration>                        pause
  suid:<id>                               switch unit id
  repeat                                  restart the command list
  date                                    print the current time
  scan:<c|di|hr|ir|s>                     scan the address (or unit id) space
  ping:<count>[:interval]                 round-trip timing test

Supported transports:
  rtu:///path/to/device, rtuovertcp://host:port, rtuoverudp://host:port,
  tcp://host:port, tcp+tls://host:port, udp://host:port
`)
}
