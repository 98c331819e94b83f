package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/bigbag/halfkay-flasher/internal/detect"
	"github.com/bigbag/halfkay-flasher/internal/flasher"
	"github.com/bigbag/halfkay-flasher/internal/protocol"
	"github.com/bigbag/halfkay-flasher/internal/serial"
	"github.com/bigbag/halfkay-flasher/internal/usbdev"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	mcuFlag        string
	codeSizeFlag   int
	blockSizeFlag  int
	vidFlag        uint16
	pidFlag        uint16
	waitFlag       time.Duration
	noRebootFlag   bool
	softRebootFlag string
	allFlag        bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "halfkay-flasher",
		Short: "Flash Intel-HEX firmware to HalfKay (Teensy) bootloaders",
		Long: `HalfKay Flasher uploads Intel-HEX firmware to boards running the
HalfKay USB bootloader, such as the Teensy 2.0 and Teensy++.

Press the program button on the board, or use --soft-reboot, and the
upload starts as soon as the bootloader appears on the bus.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	// Upload command
	uploadCmd := &cobra.Command{
		Use:   "upload <firmware.hex>",
		Short: "Upload firmware to device",
		Long: `Upload an Intel-HEX firmware image to a HalfKay device.

Blank blocks after the first are skipped. The board is rebooted into the
new firmware when the upload completes, unless --no-reboot is given.`,
		Args: cobra.ExactArgs(1),
		RunE: runUpload,
	}
	addDeviceFlags(uploadCmd)
	uploadCmd.Flags().StringVarP(&mcuFlag, "mcu", "m", protocol.DefaultMCU, "Target MCU (see 'mcus')")
	uploadCmd.Flags().IntVar(&codeSizeFlag, "code-size", 0, "Override code size in bytes")
	uploadCmd.Flags().IntVar(&blockSizeFlag, "block-size", 0, "Override block size in bytes")
	uploadCmd.Flags().BoolVar(&noRebootFlag, "no-reboot", false, "Stay in the bootloader after upload")
	uploadCmd.Flags().StringVarP(&softRebootFlag, "soft-reboot", "s", "", "Soft reboot the board on this serial port first (\"auto\" to detect)")

	// Reboot command
	rebootCmd := &cobra.Command{
		Use:   "reboot",
		Short: "Reboot a device waiting in the bootloader",
		RunE:  runReboot,
	}
	addDeviceFlags(rebootCmd)

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List HalfKay devices and Teensy serial ports",
		RunE:  runList,
	}
	listCmd.Flags().Uint16Var(&vidFlag, "vid", protocol.VendorID, "USB vendor ID")
	listCmd.Flags().Uint16Var(&pidFlag, "pid", protocol.ProductID, "USB product ID")
	listCmd.Flags().BoolVarP(&allFlag, "all", "a", false, "Also list serial ports that are not Teensy boards")

	// MCUs command
	mcusCmd := &cobra.Command{
		Use:   "mcus",
		Short: "List supported MCUs",
		Run: func(cmd *cobra.Command, args []string) {
			for _, m := range protocol.MCUs() {
				fmt.Printf("  %-12s %-14s code %6d bytes, block %d bytes\n",
					m.Name, m.Board, m.Geometry.CodeSize, m.Geometry.BlockSize)
			}
		},
	}

	// Version command
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("halfkay-flasher %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}

	rootCmd.AddCommand(uploadCmd, rebootCmd, listCmd, mcusCmd, versionCmd)

	err := rootCmd.Execute()
	glog.Flush()
	if err != nil {
		os.Exit(1)
	}
}

func addDeviceFlags(cmd *cobra.Command) {
	cmd.Flags().Uint16Var(&vidFlag, "vid", protocol.VendorID, "USB vendor ID")
	cmd.Flags().Uint16Var(&pidFlag, "pid", protocol.ProductID, "USB product ID")
	cmd.Flags().DurationVarP(&waitFlag, "wait", "w", 0, "Give up if the device does not appear in time (0 waits forever)")
}

func resolveGeometry() (protocol.Geometry, error) {
	mcu, err := protocol.LookupMCU(mcuFlag)
	if err != nil {
		return protocol.Geometry{}, err
	}

	g := mcu.Geometry
	if codeSizeFlag > 0 {
		g.CodeSize = codeSizeFlag
	}
	if blockSizeFlag > 0 {
		g.BlockSize = blockSizeFlag
	}
	return g, g.Validate()
}

func newOpener(transport usbdev.Transport) *usbdev.Opener {
	return usbdev.NewOpener(transport, usbdev.WithRetryPolicy(usbdev.RetryPolicy{
		MaxDuration: waitFlag,
	}))
}

func runUpload(cmd *cobra.Command, args []string) (err error) {
	firmwarePath := args[0]

	geometry, err := resolveGeometry()
	if err != nil {
		return err
	}

	libusb := usbdev.NewLibUSB()
	defer libusb.Close()

	f := flasher.New(newOpener(libusb),
		flasher.WithGeometry(geometry),
		flasher.WithReboot(!noRebootFlag),
	)

	// Parse before touching the device
	img, err := f.Load(firmwarePath)
	if err != nil {
		return err
	}

	fmt.Printf("Firmware: %s (%d bytes, %.1f%% of %s)\n",
		firmwarePath, img.Len(), 100*float64(img.Len())/float64(geometry.CodeSize), mcuFlag)
	if img.Len() > geometry.CodeSize {
		glog.Warningf("Firmware extends past code size (%d > %d); trailing data will not be written",
			img.Len(), geometry.CodeSize)
		fmt.Printf("Warning: firmware is larger than the %d byte code area\n", geometry.CodeSize)
	}

	if softRebootFlag != "" {
		if err := softReboot(softRebootFlag); err != nil {
			return err
		}
	}

	fmt.Printf("Waiting for device %04x:%04x...\n", vidFlag, pidFlag)
	s, err := f.Open(vidFlag, pidFlag)
	if err != nil {
		return fmt.Errorf("failed to open device: %w", err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close device: %w", cerr))
		}
	}()
	fmt.Println("Found HalfKay bootloader")

	bar := progressbar.NewOptions(img.Len(),
		progressbar.OptionSetDescription("Programming"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100),
		progressbar.OptionClearOnFinish(),
	)
	f.SetProgressCallback(func(current, total int) {
		bar.Set(current)
	})

	if err := f.WriteImage(s, img); err != nil {
		return err
	}
	bar.Finish()
	fmt.Println("\nProgramming complete!")

	if !noRebootFlag {
		fmt.Println("Rebooting device...")
		if err := f.Reboot(s); err != nil {
			return err
		}
	}

	fmt.Println("Done!")
	return nil
}

func softReboot(port string) error {
	if port == "auto" {
		found, err := serial.FindTeensyPort()
		if err != nil {
			return fmt.Errorf("soft reboot: %w", err)
		}
		port = found
	}

	fmt.Printf("Soft rebooting %s...\n", port)
	if err := serial.SoftReboot(port); err != nil {
		return fmt.Errorf("soft reboot failed: %w", err)
	}
	return nil
}

func runReboot(cmd *cobra.Command, args []string) error {
	libusb := usbdev.NewLibUSB()
	defer libusb.Close()

	f := flasher.New(newOpener(libusb))

	fmt.Printf("Waiting for device %04x:%04x...\n", vidFlag, pidFlag)
	if err := f.RebootDevice(vidFlag, pidFlag); err != nil {
		return err
	}

	fmt.Println("Rebooted.")
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	devices, err := detect.ListDevices(vidFlag, pidFlag)
	if err != nil {
		if len(devices) == 0 {
			return err
		}
		fmt.Printf("Warning: %v\n", err)
	}

	if len(devices) == 0 {
		fmt.Println("No HalfKay devices or Teensy serial ports found")
	} else {
		fmt.Printf("Found %d device(s):\n", len(devices))
		for _, d := range devices {
			fmt.Printf("  [%s] %s\n", d.Mode, d)
		}
	}

	if !allFlag {
		return nil
	}

	other, err := serial.ListOtherPorts()
	if err != nil {
		return err
	}
	if len(other) == 0 {
		fmt.Println("No other serial ports found")
		return nil
	}

	fmt.Println("Other serial ports:")
	for _, p := range other {
		fmt.Printf("  %s\n", p.Describe())
	}

	return nil
}
