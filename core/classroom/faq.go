package classroom

type FAQEntry struct {
	Question string `json:"pergunta"`
	Answer   string `json:"resposta"`
}

var faq = []FAQEntry{
	{
		Question: "O que é um plano inclinado?",
		Answer:   "Um plano inclinado é uma superfície plana que forma um ângulo com a horizontal. É uma máquina simples que permite mover objetos para cima com menos força do que seria necessário para levantá-los verticalmente.",
	},
	{
		Question: "Quais são as forças que atuam em um objeto sobre um plano inclinado?",
		Answer:   "Em um objeto sobre um plano inclinado atuam: a força peso (P), que pode ser decomposta em uma componente paralela ao plano (Px) e uma componente perpendicular ao plano (Py); a força normal (N), perpendicular à superfície; e a força de atrito (Fa), que é paralela à superfície e oposta ao movimento.",
	},
	{
		Question: "Como calcular a componente da força peso paralela ao plano inclinado?",
		Answer:   "A componente da força peso paralela ao plano inclinado é dada por: Px = m·g·sen(θ), onde m é a massa do objeto, g é a aceleração da gravidade, e θ é o ângulo de inclinação do plano.",
	},
	{
		Question: "Como calcular a componente da força peso perpendicular ao plano inclinado?",
		Answer:   "A componente da força peso perpendicular ao plano inclinado é dada por: Py = m·g·cos(θ), onde m é a massa do objeto, g é a aceleração da gravidade, e θ é o ângulo de inclinação do plano.",
	},
	{
		Question: "Como calcular a força normal em um plano inclinado?",
		Answer:   "A força normal é igual à componente perpendicular do peso: N = m·g·cos(θ), onde m é a massa do objeto, g é a aceleração da gravidade, e θ é o ângulo de inclinação do plano.",
	},
	{
		Question: "Como calcular a força de atrito em um plano inclinado?",
		Answer:   "A força de atrito é dada por: Fa = μ·N, onde μ é o coeficiente de atrito entre as superfícies e N é a força normal. Substituindo, temos: Fa = μ·m·g·cos(θ).",
	},
	{
		Question: "Qual é a condição para que um objeto desça um plano inclinado?",
		Answer:   "Um objeto deslizará para baixo em um plano inclinado quando a componente da força peso paralela ao plano (Px = m·g·sen(θ)) for maior que a força de atrito (Fa = μ·m·g·cos(θ)). Ou seja, quando sen(θ) > μ·cos(θ), ou quando tg(θ) > μ.",
	},
	{
		Question: "Como calcular a aceleração de um objeto em um plano inclinado sem atrito?",
		Answer:   "A aceleração de um objeto em um plano inclinado sem atrito é dada por: a = g·sen(θ), onde g é a aceleração da gravidade e θ é o ângulo de inclinação do plano.",
	},
	{
		Question: "Como calcular a aceleração de um objeto em um plano inclinado com atrito?",
		Answer:   "A aceleração de um objeto em um plano inclinado com atrito é dada por: a = g·sen(θ) - μ·g·cos(θ), onde g é a aceleração da gravidade, θ é o ângulo de inclinação do plano, e μ é o coeficiente de atrito.",
	},
	{
		Question: "Qual é a vantagem mecânica de um plano inclinado?",
		Answer:   "A vantagem mecânica de um plano inclinado é a razão entre o comprimento do plano (L) e a altura (h): VM = L/h. Isso significa que a força necessária para mover um objeto para cima no plano é reduzida por esse fator em comparação com levantá-lo verticalmente.",
	},
}

// FAQ returns the inclined plane questions shown in every room.
func FAQ() []FAQEntry {
	out := make([]FAQEntry, len(faq))
	copy(out, faq)
	return out
}
