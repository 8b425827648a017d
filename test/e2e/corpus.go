// Package e2e provides end-to-end tests over a synthetic supplier catalog and tender queries.
package e2e

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/hyperjump/licita/internal/models"
	"github.com/hyperjump/licita/internal/recommend"
)

// topic is one procurement area. Signature words only appear in suppliers of that area,
// so a tender built from them has a known set of relevant suppliers.
type topic struct {
	area      string
	signature string
	tender    string
}

var topics = []topic{
	{"Tecnologia", "notebooks computadores servidores", "Aquisição de notebooks e computadores para laboratórios de informática"},
	{"Limpeza", "higienização limpeza predial", "Contratação de empresa para higienização e limpeza predial de unidades de saúde"},
	{"Jardinagem", "jardinagem paisagismo poda", "Serviços de jardinagem, paisagismo e poda de árvores em praças públicas"},
	{"Alimentação", "merenda refeições cozinha industrial", "Fornecimento de merenda escolar e refeições preparadas em cozinha industrial"},
	{"Construção", "pavimentação asfalto drenagem", "Execução de obras de pavimentação com asfalto e drenagem urbana"},
	{"Saúde", "medicamentos insumos hospitalares", "Aquisição de medicamentos e insumos hospitalares para a rede municipal"},
	{"Transporte", "ônibus transporte escolar fretamento", "Fretamento de ônibus para transporte escolar da zona rural"},
	{"Segurança", "vigilância monitoramento câmeras", "Serviço de vigilância armada e monitoramento por câmeras"},
	{"Papelaria", "papel sulfite canetas cartuchos", "Registro de preços para papel sulfite, canetas e cartuchos de impressora"},
	{"Mobiliário", "cadeiras mesas armários escritório", "Aquisição de cadeiras, mesas e armários de escritório"},
	{"Combustível", "gasolina diesel abastecimento frota", "Fornecimento de gasolina e diesel para abastecimento da frota oficial"},
	{"Telecomunicações", "telefonia internet fibra óptica", "Contratação de telefonia fixa e internet por fibra óptica"},
	{"Uniformes", "uniformes fardamento confecção", "Confecção de uniformes e fardamento para a guarda municipal"},
	{"Eventos", "sonorização palco iluminação", "Locação de palco, sonorização e iluminação para eventos culturais"},
	{"Engenharia", "projetos arquitetônicos topografia", "Elaboração de projetos arquitetônicos e levantamento de topografia"},
	{"Manutenção", "ar condicionado climatização manutenção", "Manutenção preventiva de ar condicionado e sistemas de climatização"},
	{"Software", "sistema gestão licenciamento software", "Licenciamento de software de sistema de gestão tributária"},
	{"Veículos", "caminhonetes veículos utilitários", "Aquisição de caminhonetes e veículos utilitários para a defesa civil"},
	{"Gráfica", "impressão gráfica banners folders", "Serviços de impressão gráfica de banners e folders institucionais"},
	{"Laboratório", "reagentes análises clínicas", "Fornecimento de reagentes para análises clínicas do laboratório municipal"},
}

// Corpus holds generated suppliers, tenders and evaluation cases.
type Corpus struct {
	Suppliers []*models.Supplier
	Tenders   []*models.Tender
	Cases     []recommend.EvalCase
	// Relevant maps a tender ID to the IDs of active suppliers in its area.
	Relevant map[string][]string
}

// BuildCorpus generates perSupplier active suppliers per topic plus one inactive supplier per
// topic, and one tender per topic. The same seed always yields the same corpus.
func BuildCorpus(seed int64, perTopic int) *Corpus {
	faker := gofakeit.New(seed)
	c := &Corpus{Relevant: make(map[string][]string)}
	n := 0
	for ti, tp := range topics {
		tenderID := fmt.Sprintf("t%02d", ti+1)
		for j := 0; j <= perTopic; j++ {
			n++
			s := &models.Supplier{
				ID:          fmt.Sprintf("%d", n),
				CompanyName: faker.Company(),
				CNPJ:        faker.Numerify("##.###.###/0001-##"),
				Area:        tp.area,
				Description: fmt.Sprintf("%s %s", tp.signature, filler(faker, 3)),
				Specialties: tp.signature,
				Rating:      float64(faker.Number(20, 50)) / 10,
			}
			if j == perTopic {
				s.Active = models.Bool(false)
			} else {
				c.Relevant[tenderID] = append(c.Relevant[tenderID], s.ID)
			}
			c.Suppliers = append(c.Suppliers, s)
		}
		t := &models.Tender{
			ID:             tenderID,
			Number:         fmt.Sprintf("%03d/2024", ti+1),
			Title:          tp.tender,
			Description:    tp.signature,
			EstimatedValue: faker.Float64Range(10000, 500000),
			Agency:         "Prefeitura Municipal",
		}
		c.Tenders = append(c.Tenders, t)
		c.Cases = append(c.Cases, recommend.EvalCase{
			Tender:   t.Query(),
			Relevant: c.Relevant[tenderID],
		})
	}
	return c
}

// filler returns n lorem words; they never collide with the Portuguese signatures above.
func filler(faker *gofakeit.Faker, n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = faker.LoremIpsumWord()
	}
	return strings.Join(words, " ")
}
