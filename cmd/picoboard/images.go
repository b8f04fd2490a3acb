package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"
	"tinygo.org/x/tinyfont/proggy"

	"github.com/ajanata/pico-drivers/bh1750"
	"github.com/ajanata/pico-drivers/console"
	"github.com/ajanata/pico-drivers/dht"
	"github.com/ajanata/pico-drivers/display"
	"github.com/ajanata/pico-drivers/serial"
	"github.com/ajanata/pico-drivers/telemetry"
	"github.com/ajanata/pico-drivers/zs042"
)

var (
	echoCmd = &cobra.Command{
		Use:   "echo",
		Short: "Write hello world once per interval and echo received bytes",
		RunE:  runEcho,
	}

	clockCmd = &cobra.Command{
		Use:   "clock",
		Short: "Set the DS3231 and print the date and time once per interval",
		Long: "Write the configured initial time to the real-time clock (unless rtc.init is false), then print its date " +
			"and time once per interval. Lines typed on the serial sinks run console commands; try help.",
		RunE: runClock,
	}

	oledCmd = &cobra.Command{
		Use:   "oled",
		Short: "Show Hello, World! on the SSD1306",
		RunE:  runOLED,
	}

	tempHumCmd = &cobra.Command{
		Use:   "temphum",
		Short: "Print DHT11/DHT22 temperature and humidity once per interval",
		RunE:  runTempHum,
	}

	weatherCmd = &cobra.Command{
		Use:   "weather",
		Short: "Print BME280 humidity, pressure and temperature once per interval",
		RunE:  runWeather,
	}

	luxCmd = &cobra.Command{
		Use:   "lux",
		Short: "Print BH1750 illuminance once per interval",
		RunE:  runLux,
	}
)

func runEcho(cmd *cobra.Command, args []string) error {
	a, err := newApp("echo")
	if err != nil {
		return err
	}
	defer a.close()

	var port serial.Multi
	port, err = a.sinks(func(p []byte) {
		port.Write(p)
	})
	if err != nil {
		return err
	}
	return a.run(telemetry.Greeting("hello world"), port, 0)
}

func runClock(cmd *cobra.Command, args []string) error {
	a, err := newApp("clock")
	if err != nil {
		return err
	}
	defer a.close()

	b, err := a.bus()
	if err != nil {
		return err
	}
	rtc := zs042.New(b)
	rtc.Configure(zs042.Config{Address: a.cfg.RTC.Address})
	if a.cfg.RTC.Init {
		dt, err := a.cfg.RTC.DateTime()
		if err != nil {
			return err
		}
		if err := rtc.Set(dt); err != nil {
			return fmt.Errorf("initialize clock: %w", err)
		}
		a.logger.Info("clock initialized", "weekday", dt.Weekday.String(), "time", dt.Time(time.UTC).Format(time.DateTime))
	}

	con := &console.Console{RTC: &rtc, Logger: a.logger}
	port, err := a.sinks(con.Feed)
	if err != nil {
		return err
	}
	con.Out = port
	return a.run(telemetry.Clock{RTC: &rtc}, port, telemetry.MaxDateTimeLen)
}

func runOLED(cmd *cobra.Command, args []string) error {
	a, err := newApp("oled")
	if err != nil {
		return err
	}
	defer a.close()

	screen, err := a.screen()
	if err != nil {
		return err
	}
	if err := display.Banner(screen, &proggy.TinySZ8pt7b, 0, 12, "Hello, World!"); err != nil {
		return err
	}
	a.logger.Info("banner shown, waiting for interrupt")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	return nil
}

func runTempHum(cmd *cobra.Command, args []string) error {
	a, err := newApp("temphum")
	if err != nil {
		return err
	}
	defer a.close()

	if _, err := host.Init(); err != nil {
		return err
	}
	model, err := a.cfg.DHT.DHTModel()
	if err != nil {
		return err
	}
	pin := gpioreg.ByName(a.cfg.DHT.Pin)
	if pin == nil {
		return fmt.Errorf("no gpio pin %q", a.cfg.DHT.Pin)
	}
	port, err := a.sinks(nil)
	if err != nil {
		return err
	}
	return a.run(telemetry.TempHum{Sensor: dht.New(pin, model)}, port, 0)
}

func runWeather(cmd *cobra.Command, args []string) error {
	a, err := newApp("weather")
	if err != nil {
		return err
	}
	defer a.close()

	b, err := a.bus()
	if err != nil {
		return err
	}
	dev, err := bmxx80.NewI2C(b.Periph(), a.cfg.Weather.Address, &bmxx80.DefaultOpts)
	if err != nil {
		return fmt.Errorf("initialize bme280: %w", err)
	}
	a.onClose(dev.Halt)
	port, err := a.sinks(nil)
	if err != nil {
		return err
	}
	return a.run(telemetry.Weather{Sensor: dev}, port, 0)
}

func runLux(cmd *cobra.Command, args []string) error {
	a, err := newApp("lux")
	if err != nil {
		return err
	}
	defer a.close()

	b, err := a.bus()
	if err != nil {
		return err
	}
	mode, err := a.cfg.Light.BH1750Mode()
	if err != nil {
		return err
	}
	dev := bh1750.New(b)
	if err := dev.Configure(bh1750.Config{Address: a.cfg.Light.Address, Mode: mode}); err != nil {
		return fmt.Errorf("initialize bh1750: %w", err)
	}
	a.onClose(dev.Halt)
	port, err := a.sinks(nil)
	if err != nil {
		return err
	}
	return a.run(telemetry.Light{Sensor: dev}, port, 0)
}
