package root

import (
	"fmt"

	"cardiag/internal/displayer"
	"cardiag/internal/obd"
	"cardiag/internal/obd/transport"
	"cardiag/pkg/log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func Run(cmd *cobra.Command, args []string) {
	var port transport.Port
	if viper.GetBool("synthetic") {
		port = transport.NewSyntheticPort(viper.GetInt64("seed"))
	} else {
		device := viper.GetString("port")
		if device == "" {
			ports, err := transport.ScanPorts()
			if err != nil {
				log.Fatal("port scan failed", zap.Error(err))
			}
			if len(ports) == 0 {
				log.Fatal("no OBD2 adapters found")
			}
			device = ports[0].Device
			log.Info("auto-selected port",
				zap.String("device", device), zap.String("description", ports[0].Description))
		}
		port = transport.NewSerialPort(device, viper.GetInt("baud"), viper.GetDuration("timeout"))
	}

	conn := obd.NewConnector(port)
	if !conn.Connect() {
		log.Fatal("could not connect to vehicle")
	}
	defer conn.Disconnect()

	if viper.GetBool("no-tui") {
		printSummary(conn)
		return
	}

	d := displayer.New(conn)
	if err := d.Run(); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

func printSummary(conn *obd.Connector) {
	st := conn.Status()
	fmt.Printf("Protocol: %s\n", st.Protocol)
	if st.Vehicle.VIN != "" {
		fmt.Printf("VIN: %s\n", st.Vehicle.VIN)
	}
	if st.Vehicle.ECUName != "" {
		fmt.Printf("ECU: %s\n", st.Vehicle.ECUName)
	}
	if v, err := conn.ReadVoltage(); err == nil {
		fmt.Printf("Battery: %s\n", v)
	}

	readings := conn.ReadLiveData()
	fmt.Printf("\nLive data (%d of %d sensors):\n", len(readings), len(obd.DefaultLivePIDs))
	for _, r := range readings {
		if r.Unit == "hex" {
			fmt.Printf("- %s: %s\n", r.Name, r.Raw)
			continue
		}
		fmt.Printf("- %s: %.1f %s\n", r.Name, r.Value, r.Unit)
	}

	codes := conn.ScanForDTCs()
	fmt.Println("\nTrouble codes:")
	if len(codes) == 0 {
		fmt.Println("No trouble codes.")
		return
	}
	for _, tc := range codes {
		fmt.Printf("- %s [%s]: %s\n", tc.Code, tc.Kind, tc.Description)
	}
}
