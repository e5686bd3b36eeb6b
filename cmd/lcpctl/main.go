// Package main はCLIツールのエントリポイント。
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/readium/lcp-crypto-core/internal/cryptoalgo"
	"github.com/readium/lcp-crypto-core/internal/domain"
	"github.com/readium/lcp-crypto-core/internal/profile"
	"github.com/readium/lcp-crypto-core/internal/usecase"
	"github.com/readium/lcp-crypto-core/pkg/hexutil"
)

const version = "1.0.0"

var (
	apiURL  string
	output  string
	timeout time.Duration
)

// HTTPクライアント
var httpClient *http.Client

func main() {
	rootCmd := &cobra.Command{
		Use:   "lcpctl",
		Short: "Readium LCP crypto core CLI",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if apiURL == "" {
				apiURL = os.Getenv("LCPCTL_API_URL")
			}
			httpClient = &http.Client{Timeout: timeout}
		},
	}

	// グローバルフラグ
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Diagnostics server URL (or set LCPCTL_API_URL)")
	rootCmd.PersistentFlags().StringVar(&output, "output", "text", "Output format: text, json")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	// サブコマンド登録
	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(crlStatusCmd())
	rootCmd.AddCommand(userKeyCmd())
	rootCmd.AddCommand(contentKeyCmd())
	rootCmd.AddCommand(hashCmd())
	rootCmd.AddCommand(hexCmd())
	rootCmd.AddCommand(decryptPublicationCmd())
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// versionCmd はバージョン情報を表示する。
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("lcpctl version %s\n", version)
		},
	}
}

// verifyCmd はライセンスの検証コマンド。診断サーバーに問い合わせる。
func verifyCmd() *cobra.Command {
	var licenseFile string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a license against the diagnostics server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if licenseFile == "" {
				return fmt.Errorf("--license is required")
			}
			if apiURL == "" {
				return fmt.Errorf("--api-url is required (or set LCPCTL_API_URL)")
			}

			body, err := os.ReadFile(licenseFile)
			if err != nil {
				return fmt.Errorf("reading license file: %w", err)
			}

			url := fmt.Sprintf("%s/v1/licenses/verify", apiURL)
			resp, err := httpClient.Post(url, "application/json", bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("API request failed: %w", err)
			}
			defer resp.Body.Close()

			respBody, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("reading response: %w", err)
			}

			if output == "json" {
				fmt.Println(string(respBody))
				return nil
			}

			var result struct {
				Result            string `json:"result"`
				CertificateSerial string `json:"certificate_serial"`
				Error             string `json:"error"`
			}
			if err := json.Unmarshal(respBody, &result); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}
			if result.Error != "" {
				fmt.Printf("FAILED: %s (certificate serial %s)\n", result.Error, result.CertificateSerial)
				return nil
			}
			fmt.Printf("%s (certificate serial %s)\n", result.Result, result.CertificateSerial)
			return nil
		},
	}
	cmd.Flags().StringVar(&licenseFile, "license", "", "Path to a license verification request JSON file (required)")
	cmd.MarkFlagRequired("license")
	return cmd
}

// crlStatusCmd はCRL更新状況の取得コマンド。
func crlStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crl-status",
		Short: "Show the diagnostics server's revocation-list updater state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiURL == "" {
				return fmt.Errorf("--api-url is required (or set LCPCTL_API_URL)")
			}

			url := fmt.Sprintf("%s/v1/crl/status", apiURL)
			resp, err := httpClient.Get(url)
			if err != nil {
				return fmt.Errorf("API request failed: %w", err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("reading response: %w", err)
			}

			if resp.StatusCode != http.StatusOK {
				return handleErrorResponse(resp.StatusCode, body)
			}
			fmt.Println(string(body))
			return nil
		},
	}
}

// userKeyCmd はパスフレーズからユーザー鍵を導出するコマンド。
// 診断サーバーを経由しない — 鍵導出は純粋にローカルな計算である。
func userKeyCmd() *cobra.Command {
	var passphrase string
	cmd := &cobra.Command{
		Use:   "userkey",
		Short: "Derive a SHA-256 user key from a passphrase",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("--passphrase is required")
			}
			key := cryptoalgo.SumPassphrase(passphrase)
			printHexResult("user_key", key)
			return nil
		},
	}
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "User passphrase (required)")
	cmd.MarkFlagRequired("passphrase")
	return cmd
}

// contentKeyCmd はユーザー鍵でラップされたコンテンツ鍵を復号するコマンド。
func contentKeyCmd() *cobra.Command {
	var userKeyHex string
	var wrappedBase64 string
	var profileURI string
	cmd := &cobra.Command{
		Use:   "contentkey",
		Short: "Unwrap a content key under a user key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userKeyHex == "" || wrappedBase64 == "" || profileURI == "" {
				return fmt.Errorf("--user-key, --wrapped and --profile are all required")
			}

			userKey, err := hexutil.Decode(userKeyHex)
			if err != nil {
				return fmt.Errorf("decoding --user-key: %w", err)
			}
			wrapped, err := base64.StdEncoding.DecodeString(wrappedBase64)
			if err != nil {
				return fmt.Errorf("decoding --wrapped: %w", err)
			}

			suite, err := profile.GetProfile(profileURI)
			if err != nil {
				return err
			}
			cipher, err := suite.NewContentKeyCipher(userKey)
			if err != nil {
				return err
			}
			plain, err := cipher.DecryptBuffer(wrapped)
			if err != nil {
				return fmt.Errorf("%w", domain.ErrLicenseEncrypted)
			}
			printHexResult("content_key", plain)
			return nil
		},
	}
	cmd.Flags().StringVar(&userKeyHex, "user-key", "", "Hex-encoded user key (required)")
	cmd.Flags().StringVar(&wrappedBase64, "wrapped", "", "base64(IV‖ciphertext) content key (required)")
	cmd.Flags().StringVar(&profileURI, "profile", "", "Encryption profile URI (required)")
	cmd.MarkFlagRequired("user-key")
	cmd.MarkFlagRequired("wrapped")
	cmd.MarkFlagRequired("profile")
	return cmd
}

// hashCmd はファイルのSHA-256を計算するコマンド。
func hashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash [file]",
		Short: "Compute the SHA-256 digest of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening file: %w", err)
			}
			defer f.Close()

			h := cryptoalgo.NewHash()
			buf := make([]byte, 1<<20)
			for {
				n, readErr := f.Read(buf)
				if n > 0 {
					h.Update(buf[:n])
				}
				if readErr == io.EOF {
					break
				}
				if readErr != nil {
					return fmt.Errorf("reading file: %w", readErr)
				}
			}
			sum := h.Finalize()
			printHexResult("sha256", sum[:])
			return nil
		},
	}
	return cmd
}

// hexCmd はhex/raw変換のサブコマンド群。
func hexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hex",
		Short: "Convert between hex and base64-encoded raw bytes",
	}

	encodeCmd := &cobra.Command{
		Use:   "encode [base64-raw]",
		Short: "Encode base64-encoded raw bytes as hex",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := base64.StdEncoding.DecodeString(args[0])
			if err != nil {
				return fmt.Errorf("decoding base64 input: %w", err)
			}
			fmt.Println(hexutil.Encode(raw))
			return nil
		},
	}

	decodeCmd := &cobra.Command{
		Use:   "decode [hex]",
		Short: "Decode hex to base64-encoded raw bytes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := hexutil.Decode(args[0])
			if err != nil {
				return err
			}
			fmt.Println(base64.StdEncoding.EncodeToString(raw))
			return nil
		},
	}

	cmd.AddCommand(encodeCmd, decodeCmd)
	return cmd
}

// licenseFileCrypto and licenseFile mirror the diagnostics server's
// internal/handler.LicenseRequest, the object found under the "license"
// key of a VerifyLicenseRequest body. A verify request file therefore
// holds this document nested under "license", not at its top level.
type licenseFileCrypto struct {
	EncryptionProfile    string `json:"encryption_profile"`
	SignatureCertificate string `json:"signature_certificate"`
	Signature            string `json:"signature"`
	UserKeyCheck         string `json:"user_key_check"`
	ContentKey           string `json:"content_key"`
}

type licenseFile struct {
	ID               string            `json:"id"`
	Issued           string            `json:"issued"`
	Updated          string            `json:"updated"`
	CanonicalContent string            `json:"canonical_content"`
	Crypto           licenseFileCrypto `json:"crypto"`
}

func loadLicenseFile(path string) (*domain.SimpleLicense, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading --license: %w", err)
	}
	var lf licenseFile
	if err := json.Unmarshal(raw, &lf); err != nil {
		return nil, fmt.Errorf("parsing --license: %w", err)
	}
	canonical, err := base64.StdEncoding.DecodeString(lf.CanonicalContent)
	if err != nil {
		return nil, fmt.Errorf("decoding canonical_content: %w", err)
	}
	return &domain.SimpleLicense{
		IDValue:      lf.ID,
		IssuedValue:  lf.Issued,
		UpdatedValue: lf.Updated,
		Canonical:    canonical,
		CryptoValue: domain.CryptoDescriptor{
			EncryptionProfile:    lf.Crypto.EncryptionProfile,
			SignatureCertificate: lf.Crypto.SignatureCertificate,
			Signature:            lf.Crypto.Signature,
			UserKeyCheck:         lf.Crypto.UserKeyCheck,
			ContentKey:           lf.Crypto.ContentKey,
		},
	}, nil
}

// offlineNetProvider satisfies NewCryptoProvider's NetProvider parameter
// for CLI commands that never process revocation and so never dial out.
type offlineNetProvider struct{}

func (offlineNetProvider) Fetch(_ context.Context, url string) ([]byte, error) {
	return nil, fmt.Errorf("lcpctl made no provision for fetching %s offline", url)
}

// fileStream adapts an *os.File to domain.ReadableStream.
type fileStream struct {
	f    *os.File
	size int64
}

func (s *fileStream) ReadAt(p []byte, off int64) (int, error) { return s.f.ReadAt(p, off) }
func (s *fileStream) Size() (int64, error)                    { return s.size, nil }

// decryptPublicationCmd はライセンスのコンテンツ鍵で出版物コンテナを復号する
// コマンド。診断サーバーを経由しない — パスフレーズとライセンスファイルが
// あれば完結するローカル操作である。
func decryptPublicationCmd() *cobra.Command {
	var licenseFilePath string
	var passphrase string
	var inputFile string
	var outputFile string
	cmd := &cobra.Command{
		Use:   "decrypt-publication",
		Short: "Decrypt a publication container under a license's content key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if licenseFilePath == "" || passphrase == "" || inputFile == "" || outputFile == "" {
				return fmt.Errorf("--license, --passphrase, --input and --output-file are all required")
			}

			lic, err := loadLicenseFile(licenseFilePath)
			if err != nil {
				return err
			}

			provider := usecase.NewCryptoProvider(offlineNetProvider{}, time.Hour, 24*time.Hour, false)
			defer provider.Close()

			userKey, err := provider.DecryptUserKey(passphrase, lic)
			if err != nil {
				return err
			}
			contentKey, err := provider.DecryptContentKey(userKey, lic)
			if err != nil {
				return err
			}

			kp := domain.NewMemoryKeyProvider()
			kp.SetUserKey(userKey)
			kp.SetContentKey(contentKey)
			defer kp.Zero()

			in, err := os.Open(inputFile)
			if err != nil {
				return fmt.Errorf("opening --input: %w", err)
			}
			defer in.Close()
			fi, err := in.Stat()
			if err != nil {
				return fmt.Errorf("stat --input: %w", err)
			}

			es, err := provider.CreateEncryptedPublicationStream(lic, kp, &fileStream{f: in, size: fi.Size()})
			if err != nil {
				return err
			}

			out, err := os.Create(outputFile)
			if err != nil {
				return fmt.Errorf("creating --output-file: %w", err)
			}
			defer out.Close()

			size, err := es.Size()
			if err != nil {
				return err
			}

			buf := make([]byte, 1<<20)
			var offset int64
			for offset < size {
				n, readErr := es.ReadAt(buf, offset)
				if n > 0 {
					if _, werr := out.Write(buf[:n]); werr != nil {
						return fmt.Errorf("writing --output-file: %w", werr)
					}
					offset += int64(n)
				}
				if readErr != nil {
					if readErr == io.EOF {
						break
					}
					return fmt.Errorf("reading decrypted stream: %w", readErr)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "decrypted %d bytes to %s\n", offset, outputFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&licenseFilePath, "license", "", "Path to a license JSON file (required)")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "User passphrase (required)")
	cmd.Flags().StringVar(&inputFile, "input", "", "Path to the encrypted publication container (required)")
	cmd.Flags().StringVar(&outputFile, "output-file", "", "Path to write the decrypted publication (required)")
	cmd.MarkFlagRequired("license")
	cmd.MarkFlagRequired("passphrase")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output-file")
	return cmd
}

func printHexResult(label string, raw []byte) {
	if output == "json" {
		fmt.Printf("{%q:%q}\n", label, hexutil.Encode(raw))
		return
	}
	fmt.Println(hexutil.Encode(raw))
}

func handleErrorResponse(statusCode int, body []byte) error {
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&errResp); err == nil && errResp.Message != "" {
		return fmt.Errorf("error: %s", errResp.Message)
	}
	return fmt.Errorf("error: server returned status %d", statusCode)
}
